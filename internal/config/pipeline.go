package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in Pipeline.Backend.
const (
	BackendSoft = "soft"
	BackendGL   = "gl"
)

// Pipeline is the startup configuration of the chunk generation pipeline.
type Pipeline struct {
	CellEdge      int           `yaml:"cell_edge"`
	StreamRange   int           `yaml:"stream_range"`
	StoreCapacity int           `yaml:"store_capacity"`
	PackWorkers   int           `yaml:"pack_workers"`
	PackQueue     int           `yaml:"pack_queue"`
	LockTimeout   time.Duration `yaml:"lock_timeout"`
	Backend       string        `yaml:"backend"`

	Terrain Terrain `yaml:"terrain"`
}

// Terrain parameterises the density field the meshing kernel samples.
type Terrain struct {
	Seed             int64   `yaml:"seed"`
	Scale            float64 `yaml:"scale"`
	BaseHeight       int     `yaml:"base_height"`
	GradientStrength float64 `yaml:"gradient_strength"`
	Octaves          int     `yaml:"octaves"`
	Persistence      float64 `yaml:"persistence"`
	Lacunarity       float64 `yaml:"lacunarity"`
}

// Default returns the built-in configuration.
func Default() Pipeline {
	return Pipeline{
		CellEdge:      16,
		StreamRange:   4,
		StoreCapacity: 4096,
		PackWorkers:   max(runtime.NumCPU()/2, 1),
		PackQueue:     64,
		LockTimeout:   time.Second,
		Backend:       BackendSoft,
		Terrain: Terrain{
			Seed:             1337,
			Scale:            1.0 / 64.0,
			BaseHeight:       8,
			GradientStrength: 32,
			Octaves:          4,
			Persistence:      0.5,
			Lacunarity:       2.0,
		},
	}
}

// Load reads a YAML file on top of Default. Fields missing from the file keep
// their default value.
func Load(path string) (Pipeline, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (p Pipeline) Validate() error {
	var errs []error
	if p.CellEdge <= 0 {
		errs = append(errs, fmt.Errorf("cell_edge must be positive, got %d", p.CellEdge))
	}
	if p.StreamRange < minStreamRange || p.StreamRange > maxStreamRange {
		errs = append(errs, fmt.Errorf("stream_range must be in [%d, %d], got %d", minStreamRange, maxStreamRange, p.StreamRange))
	}
	if p.StoreCapacity < RequestedChunks(p.StreamRange) {
		errs = append(errs, fmt.Errorf("store_capacity %d cannot hold one frame of requests (%d)", p.StoreCapacity, RequestedChunks(p.StreamRange)))
	}
	if p.PackWorkers <= 0 {
		errs = append(errs, fmt.Errorf("pack_workers must be positive, got %d", p.PackWorkers))
	}
	if p.PackQueue < 0 {
		errs = append(errs, fmt.Errorf("pack_queue must not be negative, got %d", p.PackQueue))
	}
	if p.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("lock_timeout must be positive, got %v", p.LockTimeout))
	}
	switch p.Backend {
	case BackendSoft, BackendGL:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", p.Backend))
	}
	if p.Terrain.Octaves <= 0 {
		errs = append(errs, fmt.Errorf("terrain.octaves must be positive, got %d", p.Terrain.Octaves))
	}
	if p.Terrain.GradientStrength == 0 {
		errs = append(errs, errors.New("terrain.gradient_strength must not be zero"))
	}
	return errors.Join(errs...)
}
