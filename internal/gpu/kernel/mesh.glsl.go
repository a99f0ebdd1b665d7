package kernel

// MeshGLSL is the meshing kernel for OpenGL 4.3 compute. One invocation per
// cell; see soft/kernel.go for the reference implementation.
const MeshGLSL = `
#version 430 core

layout(local_size_x = 4, local_size_y = 4, local_size_z = 4) in;

struct Vertex {
    vec4 position;
    vec4 normal;
};

layout(std430, binding = 0) writeonly buffer Vertices {
    Vertex vertices[];
};

uniform vec4 baseOffset;
uniform ivec4 dimensions;

uniform uint seed;
uniform float scale;
uniform float baseHeight;
uniform float gradientStrength;
uniform int octaves;
uniform float persistence;
uniform float lacunarity;

const uint MAX_VERTICES_PER_CELL = 18u;

uint hash3(ivec3 p, uint s) {
    uint h = (uint(p.x) * 0x8da6b343u) ^ (uint(p.y) * 0xd8163841u) ^ (uint(p.z) * 0xcb1ab31fu) ^ s;
    h ^= h >> 16;
    h *= 0x7feb352du;
    h ^= h >> 15;
    h *= 0x846ca68bu;
    h ^= h >> 16;
    return h;
}

float lattice(ivec3 p, uint s) {
    return float(hash3(p, s)) / 4294967295.0;
}

float valueNoise(vec3 p, uint s) {
    vec3 f0 = floor(p);
    ivec3 i = ivec3(f0);
    vec3 f = p - f0;
    f = f * f * f * (f * (f * 6.0 - 15.0) + 10.0);

    float i00 = mix(lattice(i, s), lattice(i + ivec3(1, 0, 0), s), f.x);
    float i10 = mix(lattice(i + ivec3(0, 1, 0), s), lattice(i + ivec3(1, 1, 0), s), f.x);
    float i01 = mix(lattice(i + ivec3(0, 0, 1), s), lattice(i + ivec3(1, 0, 1), s), f.x);
    float i11 = mix(lattice(i + ivec3(0, 1, 1), s), lattice(i + ivec3(1, 1, 1), s), f.x);

    return mix(mix(i00, i10, f.y), mix(i01, i11, f.y), f.z);
}

float density(ivec3 w) {
    vec3 p = vec3(w) * scale;
    float amplitude = 1.0;
    float frequency = 1.0;
    float sum = 0.0;
    float norm = 0.0;
    for (int o = 0; o < octaves; o++) {
        sum += valueNoise(p * frequency, seed + uint(o * 131)) * amplitude;
        norm += amplitude;
        amplitude *= persistence;
        frequency *= lacunarity;
    }
    float n = norm > 0.0 ? sum / norm : 0.0;
    return n * 2.0 - 1.0 + (baseHeight - float(w.y)) / gradientStrength;
}

bool solid(ivec3 w) {
    return density(w) > 0.0;
}

ivec3 axisVec(int axis) {
    if (axis == 0) return ivec3(1, 0, 0);
    if (axis == 1) return ivec3(0, 1, 0);
    return ivec3(0, 0, 1);
}

void main() {
    uvec3 id = gl_GlobalInvocationID;
    uvec3 dims = uvec3(dimensions.xyz);
    if (id.x >= dims.x || id.y >= dims.y || id.z >= dims.z) return;

    uint cell = id.x + id.y * dims.x + id.z * dims.x * dims.y;
    uint base = cell * MAX_VERTICES_PER_CELL;
    ivec3 w = ivec3(baseOffset.xyz) + ivec3(id);
    bool s0 = solid(w);

    uint n = 0u;
    for (int axis = 0; axis < 3; axis++) {
        ivec3 ea = axisVec(axis);
        if (solid(w + ea) == s0) continue;
        ivec3 eu = axisVec((axis + 1) % 3);
        ivec3 ev = axisVec((axis + 2) % 3);

        vec4 c0 = vec4(vec3(w + ea), 1.0);
        vec4 c1 = vec4(vec3(w + ea + eu), 1.0);
        vec4 c2 = vec4(vec3(w + ea + eu + ev), 1.0);
        vec4 c3 = vec4(vec3(w + ea + ev), 1.0);
        vec4 normal = vec4(vec3(ea), 0.0);
        if (!s0) {
            normal = -normal;
            vec4 t = c1;
            c1 = c3;
            c3 = t;
        }

        vertices[base + n + 0u] = Vertex(c0, normal);
        vertices[base + n + 1u] = Vertex(c1, normal);
        vertices[base + n + 2u] = Vertex(c2, normal);
        vertices[base + n + 3u] = Vertex(c0, normal);
        vertices[base + n + 4u] = Vertex(c2, normal);
        vertices[base + n + 5u] = Vertex(c3, normal);
        n += 6u;
    }
    for (; n < MAX_VERTICES_PER_CELL; n++) {
        vertices[base + n] = Vertex(vec4(0.0), vec4(0.0));
    }
}
` + "\x00"
