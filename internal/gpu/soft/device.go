// Package soft is a gpu.Device that runs the meshing kernel on the CPU. It is
// the reference for the GPU kernels and the backend used by tests.
package soft

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"guacamole/internal/gpu"
	"guacamole/internal/terrain"
)

type usage int

const (
	usageStorage usage = iota
	usageVertex
)

type buffer struct {
	dev       *Device
	usage     usage
	data      []gpu.Vertex
	destroyed atomic.Bool
}

func (b *buffer) Len() int { return len(b.data) }

func (b *buffer) Map() ([]gpu.Vertex, error) {
	if b.destroyed.Load() {
		return nil, gpu.ErrDestroyed
	}
	return b.data, nil
}

func (b *buffer) Unmap() error {
	if b.destroyed.Load() {
		return gpu.ErrDestroyed
	}
	return nil
}

// Device executes dispatches asynchronously on a goroutine per dispatch,
// fanning each one out over z-slabs.
type Device struct {
	field   terrain.Field
	workers int

	mu   sync.Mutex
	live map[*buffer]struct{}

	inflight   sync.WaitGroup
	closed     atomic.Bool
	dispatches atomic.Int64
}

// New creates a device whose kernel samples field.
func New(field terrain.Field) *Device {
	return &Device{
		field:   field,
		workers: max(runtime.NumCPU(), 1),
		live:    make(map[*buffer]struct{}),
	}
}

func (d *Device) create(vertices int, u usage) (gpu.Buffer, error) {
	if d.closed.Load() {
		return nil, gpu.ErrClosed
	}
	if vertices <= 0 {
		return nil, fmt.Errorf("%w: %d vertices", gpu.ErrInvalidSize, vertices)
	}
	b := &buffer{dev: d, usage: u, data: make([]gpu.Vertex, vertices)}
	d.mu.Lock()
	d.live[b] = struct{}{}
	d.mu.Unlock()
	return b, nil
}

// CreateStorageBuffer implements gpu.Device.
func (d *Device) CreateStorageBuffer(vertices int) (gpu.Buffer, error) {
	return d.create(vertices, usageStorage)
}

// CreateVertexBuffer implements gpu.Device.
func (d *Device) CreateVertexBuffer(vertices int) (gpu.Buffer, error) {
	return d.create(vertices, usageVertex)
}

// DestroyBuffer implements gpu.Device.
func (d *Device) DestroyBuffer(gb gpu.Buffer) error {
	b, ok := gb.(*buffer)
	if !ok || b.dev != d {
		return gpu.ErrForeign
	}
	if b.destroyed.Swap(true) {
		return gpu.ErrDestroyed
	}
	d.mu.Lock()
	delete(d.live, b)
	d.mu.Unlock()
	b.data = nil
	return nil
}

// Dispatch implements gpu.Device.
func (d *Device) Dispatch(req gpu.DispatchRequest) error {
	if d.closed.Load() {
		return gpu.ErrClosed
	}
	b, ok := req.Target.(*buffer)
	if !ok || b.dev != d {
		return gpu.ErrForeign
	}
	if b.destroyed.Load() {
		return gpu.ErrDestroyed
	}
	need := req.Cells() * gpu.MaxVerticesPerCell
	if need <= 0 || len(b.data) < need {
		return fmt.Errorf("%w: need %d vertices, have %d", gpu.ErrTooSmall, need, len(b.data))
	}

	d.dispatches.Add(1)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		depth := int(req.Params.Dimensions[2])
		slab := max((depth+d.workers-1)/d.workers, 1)

		var wg sync.WaitGroup
		for z0 := 0; z0 < depth; z0 += slab {
			z1 := min(z0+slab, depth)
			wg.Add(1)
			go func() {
				defer wg.Done()
				runKernel(d.field, req.Params, b.data, z0, z1)
			}()
		}
		wg.Wait()
	}()
	return nil
}

// WaitIdle implements gpu.Device.
func (d *Device) WaitIdle() error {
	d.inflight.Wait()
	return nil
}

// Close waits for outstanding work and rejects further calls.
func (d *Device) Close() error {
	d.closed.Store(true)
	d.inflight.Wait()
	return nil
}

// LiveBuffers returns how many buffers have been created and not destroyed.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// LiveBuffersByUsage returns live storage and vertex buffer counts.
func (d *Device) LiveBuffersByUsage() (storage, vertex int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for b := range d.live {
		if b.usage == usageStorage {
			storage++
		} else {
			vertex++
		}
	}
	return storage, vertex
}

// Dispatches returns the number of accepted dispatches.
func (d *Device) Dispatches() int {
	return int(d.dispatches.Load())
}
