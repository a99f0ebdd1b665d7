// Package render decides which resident chunks would be drawn this frame.
// It only reads published meshes; drawing itself is left to the caller.
package render

import (
	"guacamole/internal/profiling"
	"guacamole/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// frustumMargin inflates chunk bounds before culling, in world units.
const frustumMargin float32 = 1.0

// Draw is one chunk ready to be drawn.
type Draw struct {
	Coord world.ChunkCoord
	Mesh  *world.Mesh
}

// FrameStats summarises one Collect call.
type FrameStats struct {
	Resident int
	Empty    int // nothing to draw yet, or nothing at all
	Culled   int
	Drawn    int
	Vertices int
}

// Chunks is the read side of a chunk store.
type Chunks interface {
	Range(fn func(i int, c *world.Chunk) bool)
}

// Collect appends to dst every chunk with a published, non-empty mesh whose
// bounds intersect the view frustum.
func Collect(store Chunks, viewProj mgl32.Mat4, edge int, dst []Draw) ([]Draw, FrameStats) {
	defer profiling.Track("render.Collect")()

	frustum := NewFrustum(viewProj, frustumMargin)
	var st FrameStats
	store.Range(func(_ int, c *world.Chunk) bool {
		st.Resident++
		m := c.Mesh()
		if m == nil || m.VertexCount == 0 {
			st.Empty++
			return true
		}
		min, max := world.Bounds(c.Coord, edge)
		if !frustum.Intersects(min, max) {
			st.Culled++
			return true
		}
		dst = append(dst, Draw{Coord: c.Coord, Mesh: m})
		st.Drawn++
		st.Vertices += m.VertexCount
		return true
	})
	return dst, st
}
