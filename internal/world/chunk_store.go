package world

import (
	"errors"
	"fmt"
	"sync/atomic"

	"guacamole/internal/profiling"
)

// ErrStoreFull is matched by every CapacityFault.
var ErrStoreFull = errors.New("chunk store full")

// CapacityFault is returned when Allocate runs out of slots. Slots are never
// reclaimed, so this is not recoverable.
type CapacityFault struct {
	Capacity int
	Coord    ChunkCoord
}

func (e *CapacityFault) Error() string {
	return fmt.Sprintf("chunk store full: cannot allocate %v, all %d slots in use", e.Coord, e.Capacity)
}

func (e *CapacityFault) Is(target error) bool {
	return target == ErrStoreFull
}

// Residency is what the streaming controller needs from a chunk store.
type Residency interface {
	Find(coord ChunkCoord) *Chunk
	Allocate(coord ChunkCoord) (*Chunk, error)
}

// ChunkStore is a fixed-capacity pool of chunk slots handed out in order.
// The backing array is allocated once and never moves, so *Chunk pointers
// stay valid for the life of the store.
//
// Find and Allocate must be called from a single goroutine (the streaming
// controller). Len, At and Range may be called from anywhere.
type ChunkStore struct {
	slots []Chunk
	next  atomic.Int64
}

// NewChunkStore creates a store with room for capacity chunks.
func NewChunkStore(capacity int) *ChunkStore {
	return &ChunkStore{slots: make([]Chunk, capacity)}
}

// Cap returns the number of slots.
func (cs *ChunkStore) Cap() int {
	return len(cs.slots)
}

// Len returns the number of allocated slots.
func (cs *ChunkStore) Len() int {
	return int(cs.next.Load())
}

// At returns the chunk in slot i, or nil if the slot is not allocated.
func (cs *ChunkStore) At(i int) *Chunk {
	if i < 0 || i >= cs.Len() {
		return nil
	}
	return &cs.slots[i]
}

// Find returns the first allocated chunk with the given coordinate. This is a
// linear scan over all allocated slots.
func (cs *ChunkStore) Find(coord ChunkCoord) *Chunk {
	defer profiling.Track("world.ChunkStore.Find")()
	n := cs.Len()
	for i := 0; i < n; i++ {
		c := &cs.slots[i]
		if c.Stage() != StageEmpty && c.Coord == coord {
			return c
		}
	}
	return nil
}

// Allocate claims the next free slot for coord and marks it Queued.
func (cs *ChunkStore) Allocate(coord ChunkCoord) (*Chunk, error) {
	n := cs.next.Load()
	if int(n) >= len(cs.slots) {
		return nil, &CapacityFault{Capacity: len(cs.slots), Coord: coord}
	}
	c := &cs.slots[n]
	c.Coord = coord
	c.stage.Store(int32(StageQueued))
	// Publishing the counter makes the slot visible to Range readers.
	cs.next.Store(n + 1)
	return c, nil
}

// Range calls fn for every allocated chunk in slot order until fn returns false.
func (cs *ChunkStore) Range(fn func(i int, c *Chunk) bool) {
	n := cs.Len()
	for i := 0; i < n; i++ {
		if !fn(i, &cs.slots[i]) {
			return
		}
	}
}

// CountByStage returns how many allocated chunks are in each stage.
func (cs *ChunkStore) CountByStage() map[Stage]int {
	out := make(map[Stage]int, 5)
	cs.Range(func(_ int, c *Chunk) bool {
		out[c.Stage()]++
		return true
	})
	return out
}
