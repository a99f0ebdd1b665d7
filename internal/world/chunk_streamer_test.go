package world

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type nopRequester struct{}

func (nopRequester) Request(*Chunk) error { return nil }

type recordingRequester struct {
	coords []ChunkCoord
	err    error
}

func (r *recordingRequester) Request(c *Chunk) error {
	if r.err != nil {
		return r.err
	}
	r.coords = append(r.coords, c.Coord)
	return nil
}

func vec(x, y, z float32) mgl32.Vec3 { return mgl32.Vec3{x, y, z} }

func TestStreamerCoverage(t *testing.T) {
	for _, r := range []int{1, 2, 3, 4} {
		cs := NewChunkStore(1024)
		req := &recordingRequester{}
		s := NewChunkStreamer(cs, req, 16)
		s.SetRangeFunc(func() int { return r })

		eye := vec(-20, 40, 100) // chunk (-2, 2, 6)
		n, err := s.Update(eye)
		if err != nil {
			t.Fatal(err)
		}
		side := r + 1
		if n != side*side*side || len(req.coords) != n {
			t.Fatalf("r=%d: enqueued %d, want %d", r, n, side*side*side)
		}

		center := ChunkCoord{X: -2, Y: 2, Z: 6}
		if s.Current() != center {
			t.Fatalf("current = %v", s.Current())
		}
		lo, hi := -(r / 2), -(r/2)+r
		for _, c := range req.coords {
			d := ChunkCoord{X: c.X - center.X, Y: c.Y - center.Y, Z: c.Z - center.Z}
			for _, v := range []int{d.X, d.Y, d.Z} {
				if v < lo || v > hi {
					t.Fatalf("r=%d: %v outside [%d,%d] of center", r, c, lo, hi)
				}
			}
		}
		if !containsCoord(req.coords, center) {
			t.Fatalf("r=%d: viewer chunk not requested", r)
		}

		// unchanged position enqueues nothing
		n, err = s.Update(eye)
		if err != nil || n != 0 {
			t.Fatalf("r=%d: second update enqueued %d (%v)", r, n, err)
		}
	}
}

func TestStreamerOrderIsXOuterZInner(t *testing.T) {
	cs := NewChunkStore(64)
	req := &recordingRequester{}
	s := NewChunkStreamer(cs, req, 8)
	s.SetRangeFunc(func() int { return 1 })

	if _, err := s.Update(vec(1, 1, 1)); err != nil {
		t.Fatal(err)
	}
	want := []ChunkCoord{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {0, 1, 1},
		{1, 0, 0}, {1, 0, 1}, {1, 1, 0}, {1, 1, 1},
	}
	if len(req.coords) != len(want) {
		t.Fatalf("got %v", req.coords)
	}
	for i := range want {
		if req.coords[i] != want[i] {
			t.Fatalf("request %d = %v, want %v", i, req.coords[i], want[i])
		}
	}
	if got := RequestedCoords(vec(1, 1, 1), 8, 1); len(got) != 8 || got[3] != want[3] {
		t.Fatalf("RequestedCoords = %v", got)
	}
}

func TestStreamerOnlyRequestsNewChunksAfterMove(t *testing.T) {
	cs := NewChunkStore(256)
	req := &recordingRequester{}
	s := NewChunkStreamer(cs, req, 16)
	s.SetRangeFunc(func() int { return 2 })

	s.Update(vec(0, 0, 0))
	before := len(req.coords)
	n, err := s.Update(vec(16, 0, 0)) // one chunk along +x
	if err != nil {
		t.Fatal(err)
	}
	if n != 9 || len(req.coords) != before+9 {
		t.Fatalf("moved one chunk and enqueued %d, want one 3x3 slab", n)
	}
	for _, c := range req.coords[before:] {
		if c.X != 2 {
			t.Fatalf("unexpected new chunk %v", c)
		}
	}
}

func TestStreamerStopsOnCapacityFault(t *testing.T) {
	cs := NewChunkStore(5)
	req := &recordingRequester{}
	s := NewChunkStreamer(cs, req, 16)
	s.SetRangeFunc(func() int { return 1 })

	n, err := s.Update(vec(0, 0, 0))
	if !errors.Is(err, ErrStoreFull) {
		t.Fatalf("err = %v, want ErrStoreFull", err)
	}
	if n != 5 {
		t.Fatalf("enqueued %d before the fault, want 5", n)
	}
}

func TestStreamerWrapsRequestError(t *testing.T) {
	boom := errors.New("queue stuck")
	cs := NewChunkStore(8)
	s := NewChunkStreamer(cs, &recordingRequester{err: boom}, 16)
	s.SetRangeFunc(func() int { return 1 })

	_, err := s.Update(vec(0, 0, 0))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func containsCoord(cs []ChunkCoord, c ChunkCoord) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}
