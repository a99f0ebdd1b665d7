package generation

import (
	"time"

	"guacamole/internal/gpu"
	"guacamole/internal/world"
)

// Triangulator runs the meshing kernel for one chunk at a time.
type Triangulator struct {
	dev   gpu.Device
	edge  int
	stats *Stats
}

// NewTriangulator creates a triangulator for chunks of edge cells per axis.
func NewTriangulator(dev gpu.Device, edge int, stats *Stats) *Triangulator {
	return &Triangulator{dev: dev, edge: edge, stats: stats}
}

// RawVertices is the size of the sparse buffer for one chunk.
func (t *Triangulator) RawVertices() int {
	return t.edge * t.edge * t.edge * gpu.MaxVerticesPerCell
}

// Triangulate dispatches the kernel over c and blocks until the device is
// idle. The returned buffer is owned by the caller.
func (t *Triangulator) Triangulate(c *world.Chunk) (gpu.Buffer, error) {
	start := time.Now()

	raw, err := t.dev.CreateStorageBuffer(t.RawVertices())
	if err != nil {
		return nil, &DeviceFault{Stage: "allocate raw buffer for", Coord: c.Coord, Err: err}
	}

	e := int32(t.edge)
	req := gpu.DispatchRequest{
		Params: gpu.Params{
			BaseOffset: c.Coord.Origin(t.edge).Vec4(0),
			Dimensions: [4]int32{e, e, e, 0},
		},
		Target: raw,
	}
	if err := t.dev.Dispatch(req); err != nil {
		_ = t.dev.DestroyBuffer(raw)
		return nil, &DeviceFault{Stage: "dispatch", Coord: c.Coord, Err: err}
	}
	// Only one dispatch is ever in flight; the buffer must be complete before
	// the pack task maps it.
	if err := t.dev.WaitIdle(); err != nil {
		_ = t.dev.DestroyBuffer(raw)
		return nil, &DeviceFault{Stage: "wait for", Coord: c.Coord, Err: err}
	}

	elapsed := time.Since(start)
	if t.stats != nil {
		t.stats.addTriangulated(elapsed)
	}
	Logger().Info("triangulated chunk", "coord", c.Coord.String(), "elapsed", elapsed)
	return raw, nil
}
