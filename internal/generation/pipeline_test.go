package generation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"guacamole/internal/config"
	"guacamole/internal/gpu"
	"guacamole/internal/gpu/soft"
	"guacamole/internal/terrain"
	"guacamole/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

type faultLog struct {
	mu     sync.Mutex
	faults []error
}

func (f *faultLog) record(err error) {
	f.mu.Lock()
	f.faults = append(f.faults, err)
	f.mu.Unlock()
}

func (f *faultLog) all() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.faults...)
}

// testTerrain has a surface that always crosses y in [-8, 16).
func testTerrain() config.Terrain {
	cfg := config.Default().Terrain
	cfg.GradientStrength = 4
	return cfg
}

func newTestPipeline(t *testing.T, dev gpu.Device, edge int) (*Pipeline, *faultLog) {
	t.Helper()
	faults := &faultLog{}
	p, err := New(Options{
		Device:      dev,
		CellEdge:    edge,
		LockTimeout: time.Second,
		PackWorkers: 2,
		PackQueue:   4,
		OnFault:     faults.record,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, faults
}

func TestEndToEndSingleChunk(t *testing.T) {
	const edge = 32
	dev := soft.New(terrain.Flat{Height: 5})
	defer dev.Close()
	p, faults := newTestPipeline(t, dev, edge)

	store := world.NewChunkStore(4)
	c, err := store.Allocate(world.ChunkCoord{})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Request(c); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(faults.all()) != 0 {
		t.Fatalf("unexpected faults: %v", faults.all())
	}

	if c.Stage() != world.StageReady {
		t.Fatalf("stage = %v, want ready", c.Stage())
	}
	// one top face per column at y=5
	if got, want := c.VertexCount(), edge*edge*6; got != want {
		t.Fatalf("VertexCount = %d, want %d", got, want)
	}
	if c.HasRawBuffer() {
		t.Fatal("raw buffer still referenced")
	}
	storage, vertex := dev.LiveBuffersByUsage()
	if storage != 0 || vertex != 1 {
		t.Fatalf("live buffers storage=%d vertex=%d, want 0 and 1", storage, vertex)
	}

	m := c.Mesh()
	if m.Buffer.Len() != edge*edge*edge*gpu.MaxVerticesPerCell {
		t.Fatalf("vertex buffer capacity %d", m.Buffer.Len())
	}
	vs, err := m.Buffer.Map()
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vs[:m.VertexCount] {
		if v.Position.Y() != 5 || v.Normal != (mgl32.Vec4{0, 1, 0, 0}) {
			t.Fatalf("vertex %d = %v", i, v)
		}
	}

	s := p.Stats()
	if s.ChunksQueued != 1 || s.ChunksTriangulated != 1 || s.ChunksPacked != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if s.VerticesPacked != int64(edge*edge*6) || s.InFlight() != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestEmptyChunkIsReadyWithNoVertices(t *testing.T) {
	dev := soft.New(terrain.Flat{Height: -100})
	defer dev.Close()
	p, _ := newTestPipeline(t, dev, 8)

	store := world.NewChunkStore(1)
	c, _ := store.Allocate(world.ChunkCoord{X: 3, Y: 3, Z: 3})
	if err := p.Request(c); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if c.Stage() != world.StageReady || c.VertexCount() != 0 {
		t.Fatalf("stage=%v count=%d", c.Stage(), c.VertexCount())
	}
}

func TestStreamerFeedsPipeline(t *testing.T) {
	const edge = 8
	dev := soft.New(terrain.NewDensity(testTerrain()))
	defer dev.Close()
	p, faults := newTestPipeline(t, dev, edge)

	store := world.NewChunkStore(64)
	streamer := world.NewChunkStreamer(store, p, edge)
	streamer.SetRangeFunc(func() int { return 2 })

	eye := mgl32.Vec3{4, 4, 4}
	n, err := streamer.Update(eye)
	if err != nil {
		t.Fatal(err)
	}
	if n != 27 {
		t.Fatalf("enqueued %d, want 27", n)
	}
	if n, _ := streamer.Update(eye); n != 0 {
		t.Fatalf("second update enqueued %d", n)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if len(faults.all()) != 0 {
		t.Fatalf("faults: %v", faults.all())
	}

	total := 0
	store.Range(func(_ int, c *world.Chunk) bool {
		if c.Stage() != world.StageReady {
			t.Errorf("chunk %v stage %v", c.Coord, c.Stage())
		}
		total += c.VertexCount()
		return true
	})
	if total == 0 {
		t.Fatal("no geometry around the surface")
	}
	if storage, _ := dev.LiveBuffersByUsage(); storage != 0 {
		t.Fatalf("%d raw buffers leaked", storage)
	}
}

type failingDevice struct {
	*soft.Device
	err error
}

func (d failingDevice) Dispatch(gpu.DispatchRequest) error { return d.err }

func TestDeviceErrorIsFault(t *testing.T) {
	boom := errors.New("device lost")
	dev := failingDevice{Device: soft.New(terrain.Flat{}), err: boom}
	p, faults := newTestPipeline(t, dev, 4)

	store := world.NewChunkStore(2)
	c, _ := store.Allocate(world.ChunkCoord{X: 1})
	if err := p.Request(c); err != nil {
		t.Fatal(err)
	}
	err := p.Close()
	if !errors.Is(err, ErrDeviceFault) || !errors.Is(err, boom) {
		t.Fatalf("Close = %v, want device fault wrapping %v", err, boom)
	}
	if got := faults.all(); len(got) != 1 {
		t.Fatalf("fault handler called %d times", len(got))
	}
	if c.Stage() == world.StageReady {
		t.Fatal("failed chunk marked ready")
	}
	if dev.LiveBuffers() != 0 {
		t.Fatalf("%d buffers leaked", dev.LiveBuffers())
	}

	c2, _ := store.Allocate(world.ChunkCoord{X: 2})
	if err := p.Request(c2); !errors.Is(err, ErrStopped) {
		t.Fatalf("Request after fault = %v, want ErrStopped", err)
	}
}

func TestQueueLockTimeoutIsFault(t *testing.T) {
	dev := soft.New(terrain.Flat{})
	defer dev.Close()
	faults := &faultLog{}
	p, err := New(Options{Device: dev, CellEdge: 4, LockTimeout: 10 * time.Millisecond, OnFault: faults.record})
	if err != nil {
		t.Fatal(err)
	}

	p.queue.lock <- struct{}{}
	store := world.NewChunkStore(1)
	c, _ := store.Allocate(world.ChunkCoord{})
	if err := p.Request(c); !errors.Is(err, ErrSyncFault) {
		t.Fatalf("Request = %v, want ErrSyncFault", err)
	}
	<-p.queue.lock

	if got := faults.all(); len(got) != 1 || !errors.Is(got[0], ErrSyncFault) {
		t.Fatalf("faults = %v", got)
	}
	if err := p.Close(); !errors.Is(err, ErrSyncFault) {
		t.Fatalf("Close = %v", err)
	}
}

func TestRequestAfterClose(t *testing.T) {
	dev := soft.New(terrain.Flat{})
	defer dev.Close()
	p, faults := newTestPipeline(t, dev, 4)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	store := world.NewChunkStore(1)
	c, _ := store.Allocate(world.ChunkCoord{})
	if err := p.Request(c); !errors.Is(err, ErrStopped) {
		t.Fatalf("Request after Close = %v, want ErrStopped", err)
	}
	if len(faults.all()) != 0 {
		t.Fatal("closing is not a fault")
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(Options{CellEdge: 4}); err == nil {
		t.Fatal("expected error without device")
	}
	if _, err := New(Options{Device: soft.New(terrain.Flat{}), CellEdge: 0}); err == nil {
		t.Fatal("expected error for zero cell edge")
	}
}

// countingDevice records dispatch origins and the number of dispatches
// submitted but not yet waited on.
type countingDevice struct {
	*soft.Device

	mu          sync.Mutex
	origins     []mgl32.Vec3
	inFlight    int
	maxInFlight int
}

func (d *countingDevice) Dispatch(req gpu.DispatchRequest) error {
	d.mu.Lock()
	d.origins = append(d.origins, req.Params.BaseOffset.Vec3())
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.mu.Unlock()
	return d.Device.Dispatch(req)
}

func (d *countingDevice) WaitIdle() error {
	err := d.Device.WaitIdle()
	d.mu.Lock()
	d.inFlight = 0
	d.mu.Unlock()
	return err
}

func TestWorkerTriangulatesInOrderOneAtATime(t *testing.T) {
	const (
		edge = 4
		n    = 40
	)
	dev := &countingDevice{Device: soft.New(terrain.NewDensity(testTerrain()))}
	defer dev.Close()
	p, faults := newTestPipeline(t, dev, edge)

	store := world.NewChunkStore(n)
	var want []mgl32.Vec3
	for i := 0; i < n; i++ {
		coord := world.ChunkCoord{X: i%5 - 2, Y: i / 10, Z: i % 7}
		c, err := store.Allocate(coord)
		if err != nil {
			t.Fatal(err)
		}
		if err := p.Request(c); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		want = append(want, coord.Origin(edge))
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if len(faults.all()) != 0 {
		t.Fatalf("faults: %v", faults.all())
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.maxInFlight != 1 {
		t.Fatalf("max dispatches in flight = %d, want 1", dev.maxInFlight)
	}
	if len(dev.origins) != n {
		t.Fatalf("dispatched %d chunks, want %d", len(dev.origins), n)
	}
	for i := range want {
		if dev.origins[i] != want[i] {
			t.Fatalf("dispatch %d at %v, want %v", i, dev.origins[i], want[i])
		}
	}
}
