package soft

import (
	"guacamole/internal/gpu"
	"guacamole/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

// The meshing kernel: every cell owns the three faces on its positive sides.
// A face is emitted when the solidity of the cell differs from its neighbour
// across that face, as two triangles wound counter-clockwise around the
// normal, which points from solid into empty space. Vertices are written
// contiguously from the cell's first slot; the rest of the cell stays zero.
// This is the same algorithm as the GLSL and WGSL kernels.

// runKernel meshes cells with z in [z0, z1) of the dispatch grid.
func runKernel(field terrain.Field, p gpu.Params, out []gpu.Vertex, z0, z1 int) {
	dx, dy := int(p.Dimensions[0]), int(p.Dimensions[1])
	bx, by, bz := int(p.BaseOffset[0]), int(p.BaseOffset[1]), int(p.BaseOffset[2])

	for z := z0; z < z1; z++ {
		for y := 0; y < dy; y++ {
			for x := 0; x < dx; x++ {
				cell := x + y*dx + z*dx*dy
				slots := out[cell*gpu.MaxVerticesPerCell : (cell+1)*gpu.MaxVerticesPerCell]
				n := meshCell(field, [3]int{bx + x, by + y, bz + z}, slots)
				clear(slots[n:])
			}
		}
	}
}

// meshCell writes the faces owned by the cell at w and returns the number of
// vertices written.
func meshCell(field terrain.Field, w [3]int, out []gpu.Vertex) int {
	solid := field.Solid(w[0], w[1], w[2])
	n := 0
	for axis := 0; axis < 3; axis++ {
		nb := w
		nb[axis]++
		if field.Solid(nb[0], nb[1], nb[2]) == solid {
			continue
		}
		n += emitFace(out[n:], w, axis, solid)
	}
	return n
}

func emitFace(out []gpu.Vertex, w [3]int, axis int, positive bool) int {
	u := (axis + 1) % 3
	v := (axis + 2) % 3

	corner := func(a, b int) mgl32.Vec4 {
		p := w
		p[axis]++
		p[u] += a
		p[v] += b
		return mgl32.Vec4{float32(p[0]), float32(p[1]), float32(p[2]), 1}
	}
	c0, c1, c2, c3 := corner(0, 0), corner(1, 0), corner(1, 1), corner(0, 1)

	var normal mgl32.Vec4
	if positive {
		normal[axis] = 1
	} else {
		normal[axis] = -1
		c1, c3 = c3, c1
	}

	tri := [6]mgl32.Vec4{c0, c1, c2, c0, c2, c3}
	for i, pos := range tri {
		out[i] = gpu.Vertex{Position: pos, Normal: normal}
	}
	return len(tri)
}
