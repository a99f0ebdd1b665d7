package generation

import (
	"sync"

	"guacamole/internal/world"
)

// PackJob is one chunk whose raw buffer is ready to be packed.
type PackJob struct {
	Chunk *world.Chunk
}

// PackPool runs pack jobs on a fixed number of goroutines.
type PackPool struct {
	jobQueue chan PackJob
	workers  int
	wg       sync.WaitGroup
	pack     func(*world.Chunk) error
	onError  func(error)
	stopOnce sync.Once
}

// NewPackPool starts workers goroutines that call pack for every submitted
// job. Errors from pack are passed to onError.
func NewPackPool(workers, queueSize int, pack func(*world.Chunk) error, onError func(error)) *PackPool {
	pool := &PackPool{
		jobQueue: make(chan PackJob, queueSize),
		workers:  workers,
		pack:     pack,
		onError:  onError,
	}

	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

// SubmitJob queues a job without blocking.
// Returns false if the queue is full.
func (p *PackPool) SubmitJob(job PackJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// SubmitJobBlocking queues a job, waiting for room.
func (p *PackPool) SubmitJobBlocking(job PackJob) {
	p.jobQueue <- job
}

func (p *PackPool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if err := p.pack(job.Chunk); err != nil {
			Logger().Error("pack failed", "worker", id, "coord", job.Chunk.Coord.String(), "err", err)
			p.onError(err)
		}
	}
}

// Shutdown stops accepting jobs, lets the workers finish everything already
// queued and waits for them. Submitting after Shutdown panics.
func (p *PackPool) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.jobQueue)
	})
	p.wg.Wait()
}

// GetQueueLength returns the number of jobs waiting for a worker.
func (p *PackPool) GetQueueLength() int {
	return len(p.jobQueue)
}

// Workers returns the pool size.
func (p *PackPool) Workers() int {
	return p.workers
}
