// Package generation turns requested chunks into renderable meshes.
//
// A single worker goroutine drains the work queue and triangulates chunks one
// at a time on the GPU. Each triangulated chunk is handed to a bounded pack
// pool, so packing overlaps with the next triangulation.
package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"guacamole/internal/config"
	"guacamole/internal/gpu"
	"guacamole/internal/world"
)

// Options configure a Pipeline.
type Options struct {
	Device      gpu.Device
	CellEdge    int
	LockTimeout time.Duration
	PackWorkers int
	PackQueue   int

	// OnFault is called once with the first fault. Defaults to ExitOnFault.
	OnFault func(error)
}

// OptionsFrom builds Options from the pipeline configuration.
func OptionsFrom(cfg config.Pipeline, dev gpu.Device) Options {
	return Options{
		Device:      dev,
		CellEdge:    cfg.CellEdge,
		LockTimeout: cfg.LockTimeout,
		PackWorkers: cfg.PackWorkers,
		PackQueue:   cfg.PackQueue,
	}
}

// Pipeline owns the work queue, the generation worker and the pack pool.
// It implements world.Requester.
type Pipeline struct {
	queue  *WorkQueue
	tri    *Triangulator
	packer *Packer
	pool   *PackPool
	stats  Stats

	onFault func(error)
	faulted atomic.Bool
	fault   atomic.Pointer[error]

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New validates opts and starts the worker.
func New(opts Options) (*Pipeline, error) {
	if opts.Device == nil {
		return nil, errors.New("generation: no device")
	}
	if opts.CellEdge <= 0 {
		return nil, fmt.Errorf("generation: cell edge must be positive, got %d", opts.CellEdge)
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = time.Second
	}
	if opts.PackWorkers <= 0 {
		opts.PackWorkers = 1
	}
	if opts.PackQueue < 0 {
		opts.PackQueue = 0
	}
	if opts.OnFault == nil {
		opts.OnFault = ExitOnFault
	}

	p := &Pipeline{
		queue:   NewWorkQueue(opts.LockTimeout),
		onFault: opts.OnFault,
		done:    make(chan struct{}),
	}
	p.tri = NewTriangulator(opts.Device, opts.CellEdge, &p.stats)
	p.packer = NewPacker(opts.Device, &p.stats)
	p.pool = NewPackPool(opts.PackWorkers, opts.PackQueue, p.packer.Pack, p.report)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
	return p, nil
}

// Request queues c for generation. c must have just been allocated.
func (p *Pipeline) Request(c *world.Chunk) error {
	if p.faulted.Load() {
		return ErrStopped
	}
	if err := p.queue.Push(WorkItem{Chunk: c, Coord: c.Coord}); err != nil {
		if p.queue.Closed() {
			return fmt.Errorf("%w: %w", ErrStopped, err)
		}
		p.report(err)
		return err
	}
	p.stats.addQueued()
	return nil
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.done)
	for {
		if err := p.queue.Wait(ctx); err != nil {
			// Closed and drained, or cancelled after a fault.
			return
		}
		for {
			item, ok, err := p.queue.Pop()
			if err != nil {
				p.report(err)
				return
			}
			if !ok {
				break
			}
			if p.faulted.Load() {
				return
			}
			p.generate(item)
		}
	}
}

func (p *Pipeline) generate(item WorkItem) {
	c := item.Chunk
	Logger().Info("generating chunk", "coord", item.Coord.String())

	c.SetStage(world.StageTriangulating)
	raw, err := p.tri.Triangulate(c)
	if err != nil {
		p.report(err)
		return
	}
	c.SetRawBuffer(raw)
	c.SetStage(world.StagePacking)

	job := PackJob{Chunk: c}
	if !p.pool.SubmitJob(job) {
		Logger().Debug("pack queue full, waiting", "coord", item.Coord.String(), "backlog", p.pool.GetQueueLength())
		p.pool.SubmitJobBlocking(job)
	}
}

// report records the first fault, stops the worker and calls the fault
// handler. Later faults are only logged.
func (p *Pipeline) report(err error) {
	if !p.faulted.CompareAndSwap(false, true) {
		Logger().Error("fault after pipeline stopped", "err", err)
		return
	}
	p.fault.Store(&err)
	Logger().Error("pipeline fault", "err", err)
	p.cancel()
	p.onFault(err)
}

// Err returns the first fault, or nil.
func (p *Pipeline) Err() error {
	if e := p.fault.Load(); e != nil {
		return *e
	}
	return nil
}

// Stats returns the current counters and queue depths.
func (p *Pipeline) Stats() Snapshot {
	s := p.stats.Snapshot()
	s.QueueLength = p.queue.Pending()
	s.PackBacklog = p.pool.GetQueueLength()
	return s
}

// Close stops accepting requests, finishes every chunk already queued and
// waits for all pack jobs. It returns the first fault, if any.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.queue.Close()
		<-p.done
		p.pool.Shutdown()
		p.cancel()
	})
	return p.Err()
}
