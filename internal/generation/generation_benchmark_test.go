package generation

import (
	"testing"

	"guacamole/internal/gpu"
	"guacamole/internal/gpu/soft"
	"guacamole/internal/terrain"
	"guacamole/internal/world"
)

// rawChunk fills a raw buffer for a chunk of side edge the way the kernel
// leaves it: a few vertices per cell and sentinels after them.
func rawChunk(edge, perCellUsed int) []gpu.Vertex {
	src := make([]gpu.Vertex, edge*edge*edge*gpu.MaxVerticesPerCell)
	for c := 0; c < edge*edge*edge; c++ {
		for i := 0; i < perCellUsed; i++ {
			src[c*gpu.MaxVerticesPerCell+i] = vertexAt(float32(c+1), float32(i), 1)
		}
	}
	return src
}

func BenchmarkCompact(b *testing.B) {
	src := rawChunk(32, 6)
	dst := make([]gpu.Vertex, len(src))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Compact(dst, src, gpu.MaxVerticesPerCell)
	}
}

func BenchmarkTriangulateSoft(b *testing.B) {
	const edge = 16
	dev := soft.New(terrain.NewDensity(testTerrain()))
	defer dev.Close()
	tri := NewTriangulator(dev, edge, &Stats{})
	c := &world.Chunk{Coord: world.ChunkCoord{}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		raw, err := tri.Triangulate(c)
		if err != nil {
			b.Fatal(err)
		}
		if err := dev.DestroyBuffer(raw); err != nil {
			b.Fatal(err)
		}
	}
}
