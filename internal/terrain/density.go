// Package terrain provides the voxel fields the meshing kernel samples.
package terrain

import "guacamole/internal/config"

// Field classifies integer voxel positions as solid or empty.
type Field interface {
	Solid(x, y, z int) bool
}

// FieldFunc adapts a function to Field.
type FieldFunc func(x, y, z int) bool

func (f FieldFunc) Solid(x, y, z int) bool { return f(x, y, z) }

// Flat is solid everywhere below Height.
type Flat struct {
	Height int
}

func (f Flat) Solid(_, y, _ int) bool { return y < f.Height }

// Density is a 3D density field: octave value noise biased by altitude, which
// gives overhangs and floating formations near BaseHeight.
type Density struct {
	seed             uint32
	scale            float64
	baseHeight       int
	gradientStrength float64
	octaves          int
	persistence      float64
	lacunarity       float64
}

// NewDensity builds a field from terrain settings.
func NewDensity(cfg config.Terrain) *Density {
	return &Density{
		seed:             uint32(cfg.Seed),
		scale:            cfg.Scale,
		baseHeight:       cfg.BaseHeight,
		gradientStrength: cfg.GradientStrength,
		octaves:          cfg.Octaves,
		persistence:      cfg.Persistence,
		lacunarity:       cfg.Lacunarity,
	}
}

// At returns the density at a voxel. Positive is solid.
func (d *Density) At(x, y, z int) float64 {
	n := octaveNoise3D(
		float64(x)*d.scale,
		float64(y)*d.scale,
		float64(z)*d.scale,
		d.seed, d.octaves, d.persistence, d.lacunarity,
	)
	// [0,1] -> [-1,1], then pull toward empty with altitude
	return n*2.0 - 1.0 + (float64(d.baseHeight)-float64(y))/d.gradientStrength
}

// Solid implements Field.
func (d *Density) Solid(x, y, z int) bool {
	return d.At(x, y, z) > 0
}

// SurfaceBand returns the altitude range outside of which the field is
// guaranteed to be uniformly solid (below) or empty (above).
func (d *Density) SurfaceBand() (lo, hi int) {
	g := int(d.gradientStrength)
	return d.baseHeight - g, d.baseHeight + g
}
