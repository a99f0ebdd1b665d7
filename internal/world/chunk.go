package world

import (
	"sync"
	"sync/atomic"

	"guacamole/internal/gpu"
)

// Stage is the lifecycle state of a chunk slot.
type Stage int32

const (
	StageEmpty Stage = iota
	StageQueued
	StageTriangulating
	StagePacking
	StageReady
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageQueued:
		return "queued"
	case StageTriangulating:
		return "triangulating"
	case StagePacking:
		return "packing"
	case StageReady:
		return "ready"
	}
	return "unknown"
}

// Mesh is the renderable result of a packed chunk. It is immutable once
// published.
type Mesh struct {
	Buffer      gpu.Buffer
	VertexCount int
}

// Chunk is one slot of the ChunkStore. Coord is written once by Allocate and
// never again. Everything else is shared between the generation worker, the
// pack task that owns the chunk and any number of readers.
type Chunk struct {
	Coord ChunkCoord

	stage atomic.Int32
	mesh  atomic.Pointer[Mesh]

	// raw is the sparse triangulation output, owned by exactly one goroutine
	// at a time.
	rawMu sync.Mutex
	raw   gpu.Buffer
}

// Stage returns the current lifecycle state.
func (c *Chunk) Stage() Stage {
	return Stage(c.stage.Load())
}

// SetStage moves the chunk to s. Ready is terminal: any later transition is
// ignored and reported as false.
func (c *Chunk) SetStage(s Stage) bool {
	for {
		cur := c.stage.Load()
		if Stage(cur) == StageReady {
			return false
		}
		if c.stage.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}

// Mesh returns the published mesh, or nil while the chunk is still being
// generated.
func (c *Chunk) Mesh() *Mesh {
	return c.mesh.Load()
}

// VertexCount returns the number of drawable vertices. Zero means there is
// nothing to draw, either because the chunk is empty or not packed yet.
func (c *Chunk) VertexCount() int {
	if m := c.mesh.Load(); m != nil {
		return m.VertexCount
	}
	return 0
}

// Publish installs the final mesh and marks the chunk Ready. Readers see
// either no mesh or the complete one. A chunk can only be published once.
func (c *Chunk) Publish(m *Mesh) bool {
	if !c.mesh.CompareAndSwap(nil, m) {
		return false
	}
	c.stage.Store(int32(StageReady))
	return true
}

// SetRawBuffer hands the triangulation output to the chunk.
func (c *Chunk) SetRawBuffer(b gpu.Buffer) {
	c.rawMu.Lock()
	c.raw = b
	c.rawMu.Unlock()
}

// TakeRawBuffer transfers ownership of the raw buffer to the caller and
// clears the chunk's reference.
func (c *Chunk) TakeRawBuffer() gpu.Buffer {
	c.rawMu.Lock()
	b := c.raw
	c.raw = nil
	c.rawMu.Unlock()
	return b
}

// HasRawBuffer reports whether the chunk still references a raw buffer.
func (c *Chunk) HasRawBuffer() bool {
	c.rawMu.Lock()
	defer c.rawMu.Unlock()
	return c.raw != nil
}
