package generation

import (
	"sync/atomic"
	"time"
)

// Stats are cumulative pipeline counters. They are written by the pipeline
// and only read by reporters.
type Stats struct {
	queued       atomic.Int64
	triangulated atomic.Int64
	packed       atomic.Int64
	vertices     atomic.Int64
	triTime      atomic.Int64
	packTime     atomic.Int64
}

// Snapshot is a point-in-time copy of Stats plus queue depths.
type Snapshot struct {
	ChunksQueued       int64         `json:"chunks_queued"`
	ChunksTriangulated int64         `json:"chunks_triangulated"`
	ChunksPacked       int64         `json:"chunks_packed"`
	VerticesPacked     int64         `json:"vertices_packed"`
	TriangulationTime  time.Duration `json:"triangulation_ns"`
	PackTime           time.Duration `json:"pack_ns"`
	QueueLength        int           `json:"queue_length"`
	PackBacklog        int           `json:"pack_backlog"`
}

// InFlight returns how many queued chunks are not packed yet.
func (s Snapshot) InFlight() int64 {
	return s.ChunksQueued - s.ChunksPacked
}

// MeanTriangulation returns the average time spent per triangulated chunk.
func (s Snapshot) MeanTriangulation() time.Duration {
	if s.ChunksTriangulated == 0 {
		return 0
	}
	return s.TriangulationTime / time.Duration(s.ChunksTriangulated)
}

// MeanPack returns the average time spent per packed chunk.
func (s Snapshot) MeanPack() time.Duration {
	if s.ChunksPacked == 0 {
		return 0
	}
	return s.PackTime / time.Duration(s.ChunksPacked)
}

func (s *Stats) addQueued() { s.queued.Add(1) }

func (s *Stats) addTriangulated(d time.Duration) {
	s.triangulated.Add(1)
	s.triTime.Add(int64(d))
}

func (s *Stats) addPacked(vertices int, d time.Duration) {
	s.packed.Add(1)
	s.vertices.Add(int64(vertices))
	s.packTime.Add(int64(d))
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ChunksQueued:       s.queued.Load(),
		ChunksTriangulated: s.triangulated.Load(),
		ChunksPacked:       s.packed.Load(),
		VerticesPacked:     s.vertices.Load(),
		TriangulationTime:  time.Duration(s.triTime.Load()),
		PackTime:           time.Duration(s.packTime.Load()),
	}
}
