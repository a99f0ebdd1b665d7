package terrain

import "math"

// Value noise over a 32-bit integer lattice hash. The same hash and fade curve
// are used by the compute kernels, so the CPU and GPU fields agree up to
// float precision.

// fade is the quintic smoothstep 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func hash3(x, y, z int32, seed uint32) uint32 {
	h := uint32(x)*0x8da6b343 ^ uint32(y)*0xd8163841 ^ uint32(z)*0xcb1ab31f ^ seed
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return h
}

// latticeValue maps a lattice point to [0,1].
func latticeValue(x, y, z int32, seed uint32) float64 {
	return float64(hash3(x, y, z, seed)) / float64(math.MaxUint32)
}

func valueNoise3D(x, y, z float64, seed uint32) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	z0 := math.Floor(z)
	ix, iy, iz := int32(x0), int32(y0), int32(z0)

	fx := fade(x - x0)
	fy := fade(y - y0)
	fz := fade(z - z0)

	v000 := latticeValue(ix, iy, iz, seed)
	v100 := latticeValue(ix+1, iy, iz, seed)
	v010 := latticeValue(ix, iy+1, iz, seed)
	v110 := latticeValue(ix+1, iy+1, iz, seed)
	v001 := latticeValue(ix, iy, iz+1, seed)
	v101 := latticeValue(ix+1, iy, iz+1, seed)
	v011 := latticeValue(ix, iy+1, iz+1, seed)
	v111 := latticeValue(ix+1, iy+1, iz+1, seed)

	i00 := lerp(v000, v100, fx)
	i10 := lerp(v010, v110, fx)
	i01 := lerp(v001, v101, fx)
	i11 := lerp(v011, v111, fx)

	i0 := lerp(i00, i10, fy)
	i1 := lerp(i01, i11, fy)
	return lerp(i0, i1, fz) // [0,1]
}

func octaveNoise3D(x, y, z float64, seed uint32, octaves int, persistence, lacunarity float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for i := range octaves {
		v := valueNoise3D(x*frequency, y*frequency, z*frequency, seed+uint32(i*131))
		sum += v * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm // [0,1]
}
