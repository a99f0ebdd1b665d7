package world

import (
	"fmt"

	"guacamole/internal/config"
	"guacamole/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// Requester accepts chunks that need to be generated.
type Requester interface {
	Request(c *Chunk) error
}

// ChunkStreamer keeps the store populated around the viewer. Call Update once
// per frame from the goroutine that owns the store.
type ChunkStreamer struct {
	store Residency
	gen   Requester
	edge  int

	// rangeFn returns the stream range for this frame.
	rangeFn func() int

	last ChunkCoord
}

// NewChunkStreamer creates a streamer over a store with the given cell edge
// length. The stream range is read from config on every Update.
func NewChunkStreamer(store Residency, gen Requester, edge int) *ChunkStreamer {
	return &ChunkStreamer{
		store:   store,
		gen:     gen,
		edge:    edge,
		rangeFn: config.GetStreamRange,
	}
}

// SetRangeFunc overrides where the stream range comes from.
func (cs *ChunkStreamer) SetRangeFunc(fn func() int) {
	cs.rangeFn = fn
}

// Current returns the chunk coordinate the viewer was in on the last Update.
func (cs *ChunkStreamer) Current() ChunkCoord {
	return cs.last
}

// Update requests every chunk within range of eye that is not resident yet
// and returns how many were enqueued. Nearer chunks are not prioritised; the
// order is x outer, y middle, z inner.
func (cs *ChunkStreamer) Update(eye mgl32.Vec3) (int, error) {
	defer profiling.Track("world.ChunkStreamer.Update")()

	current := CoordAt(eye, cs.edge)
	cs.last = current

	enqueued := 0
	var err error
	forEachInRange(current, cs.rangeFn(), func(coord ChunkCoord) bool {
		if cs.store.Find(coord) != nil {
			return true
		}
		var c *Chunk
		c, err = cs.store.Allocate(coord)
		if err != nil {
			return false
		}
		if err = cs.gen.Request(c); err != nil {
			err = fmt.Errorf("request chunk %v: %w", coord, err)
			return false
		}
		enqueued++
		return true
	})
	return enqueued, err
}

// RequestedCoords returns the coordinates a frame at eye asks for, in
// enqueue order.
func RequestedCoords(eye mgl32.Vec3, edge, r int) []ChunkCoord {
	out := make([]ChunkCoord, 0, config.RequestedChunks(r))
	forEachInRange(CoordAt(eye, edge), r, func(c ChunkCoord) bool {
		out = append(out, c)
		return true
	})
	return out
}

// forEachInRange visits the cube of side r+1 around center. For odd r the
// extra layer lies on the positive side.
func forEachInRange(center ChunkCoord, r int, fn func(ChunkCoord) bool) {
	lo := -(r / 2)
	hi := lo + r
	for dx := lo; dx <= hi; dx++ {
		for dy := lo; dy <= hi; dy++ {
			for dz := lo; dz <= hi; dz++ {
				if !fn(center.Add(ChunkCoord{X: dx, Y: dy, Z: dz})) {
					return
				}
			}
		}
	}
}
