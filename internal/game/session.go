package game

import (
	"sync"

	"guacamole/internal/config"
	"guacamole/internal/diag"
	"guacamole/internal/generation"
	"guacamole/internal/gpu"
	"guacamole/internal/profiling"
	"guacamole/internal/render"
	"guacamole/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// Session is one viewer flying through the world: the chunk store, the
// streaming controller feeding the pipeline and the draw list.
type Session struct {
	Camera *render.Camera
	Speed  float32 // world units per second along the view direction

	edge     int
	store    *world.ChunkStore
	streamer *world.ChunkStreamer
	pipeline *generation.Pipeline

	draws []render.Draw

	// guarded by mu, read by diagnostics
	mu     sync.Mutex
	frames int64
	viewer world.ChunkCoord
	drawn  render.FrameStats
	top    string
}

// NewSession starts a pipeline on dev and places the camera above the
// terrain base height at the origin, looking along +X.
func NewSession(cfg config.Pipeline, dev gpu.Device, onFault func(error)) (*Session, error) {
	opts := generation.OptionsFrom(cfg, dev)
	opts.OnFault = onFault
	p, err := generation.New(opts)
	if err != nil {
		return nil, err
	}

	store := world.NewChunkStore(cfg.StoreCapacity)
	cam := render.NewCamera(1280, 720)
	cam.Position = mgl32.Vec3{0.5, float32(cfg.Terrain.BaseHeight) + 0.5, 0.5}
	cam.Yaw = 90
	cam.Pitch = -15

	return &Session{
		Camera:   cam,
		Speed:    8,
		edge:     cfg.CellEdge,
		store:    store,
		streamer: world.NewChunkStreamer(store, p, cfg.CellEdge),
		pipeline: p,
	}, nil
}

// Update advances the camera by dt seconds and requests missing chunks.
func (s *Session) Update(dt float64) error {
	front := s.Camera.Front()
	front[1] = 0
	if front.Len() > 0 {
		s.Camera.Position = s.Camera.Position.Add(front.Normalize().Mul(s.Speed * float32(dt)))
	}

	if _, err := s.streamer.Update(s.Camera.Position); err != nil {
		return err
	}

	s.mu.Lock()
	s.frames++
	s.viewer = s.streamer.Current()
	s.mu.Unlock()
	return nil
}

// Render builds this frame's draw list.
func (s *Session) Render() render.FrameStats {
	var st render.FrameStats
	s.draws, st = render.Collect(s.store, s.Camera.ViewProjection(), s.edge, s.draws[:0])

	s.mu.Lock()
	s.drawn = st
	s.top = profiling.TopN(3)
	s.mu.Unlock()
	return st
}

// Draws returns the last draw list. It is reused by the next Render.
func (s *Session) Draws() []render.Draw {
	return s.draws
}

// Store returns the session's chunk store.
func (s *Session) Store() *world.ChunkStore {
	return s.store
}

// Pipeline returns the session's generation pipeline.
func (s *Session) Pipeline() *generation.Pipeline {
	return s.pipeline
}

// Report is a diag.Source.
func (s *Session) Report() diag.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return diag.Report{
		Frame:    s.frames,
		Viewer:   s.viewer,
		Resident: s.store.Len(),
		Capacity: s.store.Cap(),
		Stages:   diag.StageCounts(s.store.CountByStage()),
		Drawn:    s.drawn.Drawn,
		Pipeline: s.pipeline.Stats(),
		FrameTop: s.top,
	}
}

// Cleanup finishes every queued chunk and stops the pipeline.
func (s *Session) Cleanup() error {
	return s.pipeline.Close()
}
