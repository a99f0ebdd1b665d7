package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkCoord identifies a cell of the world grid. A chunk spans
// [coord*edge, (coord+1)*edge) on every axis.
type ChunkCoord struct {
	X, Y, Z int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%dx %dy %dz)", c.X, c.Y, c.Z)
}

// Add returns the component-wise sum of two coordinates.
func (c ChunkCoord) Add(o ChunkCoord) ChunkCoord {
	return ChunkCoord{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

// Origin returns the world-space position of the chunk's minimum corner.
func (c ChunkCoord) Origin(edge int) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(c.X * edge),
		float32(c.Y * edge),
		float32(c.Z * edge),
	}
}

// CoordAt returns the coordinate of the chunk containing a world-space point.
func CoordAt(p mgl32.Vec3, edge int) ChunkCoord {
	return ChunkCoord{
		X: floorDiv(int(math.Floor(float64(p.X()))), edge),
		Y: floorDiv(int(math.Floor(float64(p.Y()))), edge),
		Z: floorDiv(int(math.Floor(float64(p.Z()))), edge),
	}
}

// Bounds returns the world-space AABB of a chunk.
func Bounds(c ChunkCoord, edge int) (min, max mgl32.Vec3) {
	min = c.Origin(edge)
	e := float32(edge)
	max = min.Add(mgl32.Vec3{e, e, e})
	return min, max
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
