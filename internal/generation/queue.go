package generation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"guacamole/internal/world"
)

// WorkItem asks for the chunk in an already allocated slot to be generated.
type WorkItem struct {
	Chunk *world.Chunk
	Coord world.ChunkCoord
}

// WorkQueue is a FIFO of work items for one producer and one consumer.
//
// The item slice is guarded by a lock that is only ever waited on for a
// bounded time; failing to get it is a SyncFault. pending counts pushed but
// not yet popped items and ready wakes the consumer.
type WorkQueue struct {
	lock    chan struct{}
	timeout time.Duration
	items   []WorkItem

	pending atomic.Int64
	ready   chan struct{}

	closed atomic.Bool
	done   chan struct{}
}

// NewWorkQueue creates an empty queue whose lock waits at most timeout.
func NewWorkQueue(timeout time.Duration) *WorkQueue {
	return &WorkQueue{
		lock:    make(chan struct{}, 1),
		timeout: timeout,
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (q *WorkQueue) acquire(op string) error {
	t := time.NewTimer(q.timeout)
	defer t.Stop()
	select {
	case q.lock <- struct{}{}:
		return nil
	case <-t.C:
		return &SyncFault{Op: op, Reason: fmt.Sprintf("lock not acquired within %v", q.timeout)}
	}
}

func (q *WorkQueue) release() {
	<-q.lock
}

// Push appends item and wakes the consumer.
func (q *WorkQueue) Push(item WorkItem) error {
	if q.closed.Load() {
		return &SyncFault{Op: "push", Reason: "queue closed"}
	}
	if err := q.acquire("push"); err != nil {
		return err
	}
	q.items = append(q.items, item)
	q.pending.Add(1)
	q.release()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the front item. ok is false when the queue is empty.
func (q *WorkQueue) Pop() (item WorkItem, ok bool, err error) {
	if err := q.acquire("pop"); err != nil {
		return WorkItem{}, false, err
	}
	if len(q.items) == 0 {
		q.release()
		return WorkItem{}, false, nil
	}
	item = q.items[0]
	q.items[0] = WorkItem{}
	q.items = q.items[1:]
	q.pending.Add(-1)
	q.release()
	return item, true, nil
}

// Wait blocks until at least one item is pending. It returns a SyncFault once
// the queue is closed and drained, or ctx's error.
func (q *WorkQueue) Wait(ctx context.Context) error {
	for {
		if q.pending.Load() > 0 {
			return nil
		}
		if q.closed.Load() {
			return &SyncFault{Op: "wait", Reason: "queue closed"}
		}
		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops Push. Items already queued can still be popped.
func (q *WorkQueue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}

// Closed reports whether Close was called.
func (q *WorkQueue) Closed() bool {
	return q.closed.Load()
}

// Pending returns the number of items pushed but not popped.
func (q *WorkQueue) Pending() int {
	return int(q.pending.Load())
}

// Len returns the number of queued items, or -1 if the lock could not be
// taken in time.
func (q *WorkQueue) Len() int {
	if err := q.acquire("len"); err != nil {
		return -1
	}
	defer q.release()
	return len(q.items)
}
