package generation

import (
	"errors"
	"time"

	"guacamole/internal/gpu"
	"guacamole/internal/world"
)

var errNoRawBuffer = errors.New("no raw buffer to pack")

// Compact copies the real vertices of src into dst and returns how many were
// copied. src is split into cells of perCell slots; the first sentinel in a
// cell ends that cell, so a real vertex at the world origin drops the rest
// of its cell. dst must be at least as long as src.
func Compact(dst, src []gpu.Vertex, perCell int) int {
	if perCell <= 0 {
		return 0
	}
	n := 0
	for base := 0; base < len(src); base += perCell {
		end := min(base+perCell, len(src))
		for _, v := range src[base:end] {
			if v.IsSentinel() {
				break
			}
			dst[n] = v
			n++
		}
	}
	return n
}

// Packer turns a chunk's sparse triangulation output into its dense mesh.
type Packer struct {
	dev   gpu.Device
	stats *Stats
}

// NewPacker creates a packer allocating on dev.
func NewPacker(dev gpu.Device, stats *Stats) *Packer {
	return &Packer{dev: dev, stats: stats}
}

// Pack takes ownership of c's raw buffer, compacts it into a new vertex
// buffer, releases the raw buffer and publishes the mesh. The vertex buffer
// has the same capacity as the raw one.
func (pk *Packer) Pack(c *world.Chunk) error {
	start := time.Now()

	raw := c.TakeRawBuffer()
	if raw == nil {
		return &DeviceFault{Stage: "pack", Coord: c.Coord, Err: errNoRawBuffer}
	}
	fail := func(stage string, err error) error {
		_ = pk.dev.DestroyBuffer(raw)
		return &DeviceFault{Stage: stage, Coord: c.Coord, Err: err}
	}

	dst, err := pk.dev.CreateVertexBuffer(raw.Len())
	if err != nil {
		return fail("allocate vertex buffer for", err)
	}
	src, err := raw.Map()
	if err != nil {
		_ = pk.dev.DestroyBuffer(dst)
		return fail("map raw buffer of", err)
	}
	out, err := dst.Map()
	if err != nil {
		_ = raw.Unmap()
		_ = pk.dev.DestroyBuffer(dst)
		return fail("map vertex buffer of", err)
	}

	count := Compact(out, src, gpu.MaxVerticesPerCell)

	if err := dst.Unmap(); err != nil {
		_ = raw.Unmap()
		_ = pk.dev.DestroyBuffer(dst)
		return fail("unmap vertex buffer of", err)
	}
	if err := raw.Unmap(); err != nil {
		_ = pk.dev.DestroyBuffer(dst)
		return fail("unmap raw buffer of", err)
	}
	if err := pk.dev.DestroyBuffer(raw); err != nil {
		_ = pk.dev.DestroyBuffer(dst)
		return &DeviceFault{Stage: "release raw buffer of", Coord: c.Coord, Err: err}
	}

	c.Publish(&world.Mesh{Buffer: dst, VertexCount: count})

	elapsed := time.Since(start)
	if pk.stats != nil {
		pk.stats.addPacked(count, elapsed)
	}
	Logger().Info("packed chunk", "coord", c.Coord.String(), "vertices", count, "elapsed", elapsed)
	return nil
}
