package world

import (
	"testing"

	"guacamole/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCoordAtFloorsNegative(t *testing.T) {
	cases := []struct {
		p    mgl32.Vec3
		want ChunkCoord
	}{
		{vec(0, 0, 0), ChunkCoord{0, 0, 0}},
		{vec(15.9, 16, 31.99), ChunkCoord{0, 1, 1}},
		{vec(-0.1, -16, -16.5), ChunkCoord{-1, -1, -2}},
		{vec(-32, 47, -1), ChunkCoord{-2, 2, -1}},
	}
	for _, tc := range cases {
		if got := CoordAt(tc.p, 16); got != tc.want {
			t.Errorf("CoordAt(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}

func TestBounds(t *testing.T) {
	min, max := Bounds(ChunkCoord{X: -1, Y: 0, Z: 2}, 32)
	if min != vec(-32, 0, 64) || max != vec(0, 32, 96) {
		t.Fatalf("Bounds = %v %v", min, max)
	}
}

func TestCoordString(t *testing.T) {
	if s := (ChunkCoord{X: 1, Y: -2, Z: 3}).String(); s != "(1x -2y 3z)" {
		t.Fatalf("String = %q", s)
	}
}

func TestChunkReadyIsTerminal(t *testing.T) {
	var c Chunk
	c.SetStage(StageTriangulating)
	if c.VertexCount() != 0 || c.Mesh() != nil {
		t.Fatal("unpublished chunk has a mesh")
	}
	if !c.Publish(&Mesh{VertexCount: 12}) {
		t.Fatal("first Publish failed")
	}
	if c.Stage() != StageReady || c.VertexCount() != 12 {
		t.Fatalf("stage=%v count=%d", c.Stage(), c.VertexCount())
	}
	if c.Publish(&Mesh{VertexCount: 99}) {
		t.Fatal("second Publish succeeded")
	}
	if c.SetStage(StagePacking) || c.Stage() != StageReady {
		t.Fatal("left Ready")
	}
	if c.VertexCount() != 12 {
		t.Fatal("mesh changed after Ready")
	}
}

type fakeBuffer struct{ n int }

func (b fakeBuffer) Len() int                   { return b.n }
func (b fakeBuffer) Map() ([]gpu.Vertex, error) { return make([]gpu.Vertex, b.n), nil }
func (b fakeBuffer) Unmap() error               { return nil }

func TestChunkRawBufferHandoff(t *testing.T) {
	var c Chunk
	c.SetRawBuffer(fakeBuffer{n: 4})
	if !c.HasRawBuffer() {
		t.Fatal("raw buffer not set")
	}
	b := c.TakeRawBuffer()
	if b == nil || b.Len() != 4 {
		t.Fatalf("took %v", b)
	}
	if c.HasRawBuffer() || c.TakeRawBuffer() != nil {
		t.Fatal("raw buffer still owned by chunk")
	}
}
