package kernel

// MeshWGSL is the meshing kernel in WGSL, compiled to SPIR-V for Vulkan-class
// backends. Bindings: 0 output vertices, 1 dispatch params, 2 terrain params.
const MeshWGSL = `
struct Vertex {
    position: vec4<f32>,
    normal: vec4<f32>,
}

struct Params {
    base_offset: vec4<f32>,
    dimensions: vec4<i32>,
}

struct Terrain {
    seed: u32,
    octaves: i32,
    scale: f32,
    base_height: f32,
    gradient_strength: f32,
    persistence: f32,
    lacunarity: f32,
    pad: f32,
}

@group(0) @binding(0) var<storage, read_write> vertices: array<Vertex>;
@group(0) @binding(1) var<uniform> params: Params;
@group(0) @binding(2) var<uniform> terrain: Terrain;

const MAX_VERTICES_PER_CELL: u32 = 18u;

fn hash3(p: vec3<i32>, s: u32) -> u32 {
    var h = (bitcast<u32>(p.x) * 0x8da6b343u) ^ (bitcast<u32>(p.y) * 0xd8163841u) ^ (bitcast<u32>(p.z) * 0xcb1ab31fu) ^ s;
    h = h ^ (h >> 16u);
    h = h * 0x7feb352du;
    h = h ^ (h >> 15u);
    h = h * 0x846ca68bu;
    h = h ^ (h >> 16u);
    return h;
}

fn lattice(p: vec3<i32>, s: u32) -> f32 {
    return f32(hash3(p, s)) / 4294967295.0;
}

fn value_noise(p: vec3<f32>, s: u32) -> f32 {
    let f0 = floor(p);
    let i = vec3<i32>(f0);
    var f = p - f0;
    f = f * f * f * (f * (f * 6.0 - 15.0) + 10.0);

    let i00 = mix(lattice(i, s), lattice(i + vec3<i32>(1, 0, 0), s), f.x);
    let i10 = mix(lattice(i + vec3<i32>(0, 1, 0), s), lattice(i + vec3<i32>(1, 1, 0), s), f.x);
    let i01 = mix(lattice(i + vec3<i32>(0, 0, 1), s), lattice(i + vec3<i32>(1, 0, 1), s), f.x);
    let i11 = mix(lattice(i + vec3<i32>(0, 1, 1), s), lattice(i + vec3<i32>(1, 1, 1), s), f.x);

    return mix(mix(i00, i10, f.y), mix(i01, i11, f.y), f.z);
}

fn density(w: vec3<i32>) -> f32 {
    let p = vec3<f32>(w) * terrain.scale;
    var amplitude = 1.0;
    var frequency = 1.0;
    var sum = 0.0;
    var norm = 0.0;
    for (var o = 0; o < terrain.octaves; o = o + 1) {
        sum = sum + value_noise(p * frequency, terrain.seed + u32(o * 131)) * amplitude;
        norm = norm + amplitude;
        amplitude = amplitude * terrain.persistence;
        frequency = frequency * terrain.lacunarity;
    }
    var n = 0.0;
    if (norm > 0.0) {
        n = sum / norm;
    }
    return n * 2.0 - 1.0 + (terrain.base_height - f32(w.y)) / terrain.gradient_strength;
}

fn solid(w: vec3<i32>) -> bool {
    return density(w) > 0.0;
}

fn axis_vec(axis: i32) -> vec3<i32> {
    if (axis == 0) {
        return vec3<i32>(1, 0, 0);
    }
    if (axis == 1) {
        return vec3<i32>(0, 1, 0);
    }
    return vec3<i32>(0, 0, 1);
}

@compute @workgroup_size(4, 4, 4)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let dims = vec3<u32>(params.dimensions.xyz);
    if (id.x >= dims.x || id.y >= dims.y || id.z >= dims.z) {
        return;
    }

    let cell = id.x + id.y * dims.x + id.z * dims.x * dims.y;
    let base = cell * MAX_VERTICES_PER_CELL;
    let w = vec3<i32>(params.base_offset.xyz) + vec3<i32>(id);
    let s0 = solid(w);

    var n = 0u;
    for (var axis = 0; axis < 3; axis = axis + 1) {
        let ea = axis_vec(axis);
        if (solid(w + ea) == s0) {
            continue;
        }
        let eu = axis_vec((axis + 1) % 3);
        let ev = axis_vec((axis + 2) % 3);

        let c0 = vec4<f32>(vec3<f32>(w + ea), 1.0);
        var c1 = vec4<f32>(vec3<f32>(w + ea + eu), 1.0);
        let c2 = vec4<f32>(vec3<f32>(w + ea + eu + ev), 1.0);
        var c3 = vec4<f32>(vec3<f32>(w + ea + ev), 1.0);
        var normal = vec4<f32>(vec3<f32>(ea), 0.0);
        if (!s0) {
            normal = -normal;
            let t = c1;
            c1 = c3;
            c3 = t;
        }

        vertices[base + n + 0u] = Vertex(c0, normal);
        vertices[base + n + 1u] = Vertex(c1, normal);
        vertices[base + n + 2u] = Vertex(c2, normal);
        vertices[base + n + 3u] = Vertex(c0, normal);
        vertices[base + n + 4u] = Vertex(c2, normal);
        vertices[base + n + 5u] = Vertex(c3, normal);
        n = n + 6u;
    }
    loop {
        if (n >= MAX_VERTICES_PER_CELL) {
            break;
        }
        vertices[base + n] = Vertex(vec4<f32>(0.0), vec4<f32>(0.0));
        n = n + 1u;
    }
}
`
