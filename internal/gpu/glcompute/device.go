// Package glcompute is a gpu.Device backed by OpenGL 4.3 compute shaders.
//
// GL contexts are bound to one OS thread, so every GL call is executed on a
// dedicated goroutine locked to its thread. Mapped buffer memory is plain
// client memory and may be read and written from any goroutine until Unmap.
package glcompute

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"guacamole/internal/config"
	"guacamole/internal/gpu"
	"guacamole/internal/gpu/kernel"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Must match local_size in the kernel.
const workGroupSize = 4

type uniforms struct {
	baseOffset       int32
	dimensions       int32
	seed             int32
	scale            int32
	baseHeight       int32
	gradientStrength int32
	octaves          int32
	persistence      int32
	lacunarity       int32
}

type buffer struct {
	dev      *Device
	id       uint32
	target   uint32
	vertices int

	mu        sync.Mutex
	destroyed bool
}

func (b *buffer) Len() int { return b.vertices }

func (b *buffer) Map() ([]gpu.Vertex, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil, gpu.ErrDestroyed
	}
	var out []gpu.Vertex
	err := b.dev.do(func() error {
		gl.BindBuffer(b.target, b.id)
		ptr := gl.MapBufferRange(b.target, 0, b.vertices*gpu.VertexSize, gl.MAP_READ_BIT|gl.MAP_WRITE_BIT)
		gl.BindBuffer(b.target, 0)
		if ptr == nil {
			return fmt.Errorf("glcompute: map buffer %d failed: %s", b.id, glError())
		}
		out = unsafe.Slice((*gpu.Vertex)(ptr), b.vertices)
		return nil
	})
	return out, err
}

func (b *buffer) Unmap() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return gpu.ErrDestroyed
	}
	return b.dev.do(func() error {
		gl.BindBuffer(b.target, b.id)
		ok := gl.UnmapBuffer(b.target)
		gl.BindBuffer(b.target, 0)
		if !ok {
			return fmt.Errorf("glcompute: buffer %d contents lost while mapped", b.id)
		}
		return nil
	})
}

// Device owns a hidden GLFW window whose context runs the kernel.
type Device struct {
	terrain config.Terrain

	calls     chan func()
	done      chan struct{}
	closeOnce sync.Once
	quit      bool

	window  *glfw.Window
	program uint32
	loc     uniforms
}

// New starts the GL thread, creates a context and compiles the kernel.
func New(terrain config.Terrain) (*Device, error) {
	d := &Device{
		terrain: terrain,
		calls:   make(chan func()),
		done:    make(chan struct{}),
	}
	ready := make(chan error, 1)
	go d.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := d.init(); err != nil {
		d.teardown()
		close(d.done)
		ready <- err
		return
	}
	ready <- nil

	for !d.quit {
		fn := <-d.calls
		fn()
	}
	d.teardown()
}

func (d *Device) init() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glcompute: glfw init: %w", err)
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(1, 1, "guacamole compute", nil, nil)
	if err != nil {
		return fmt.Errorf("glcompute: create context: %w", err)
	}
	d.window = window
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("glcompute: gl init: %w", err)
	}

	program, err := compileComputeShader(kernel.MeshGLSL)
	if err != nil {
		return err
	}
	d.program = program
	d.loc = uniforms{
		baseOffset:       uniformLocation(program, "baseOffset"),
		dimensions:       uniformLocation(program, "dimensions"),
		seed:             uniformLocation(program, "seed"),
		scale:            uniformLocation(program, "scale"),
		baseHeight:       uniformLocation(program, "baseHeight"),
		gradientStrength: uniformLocation(program, "gradientStrength"),
		octaves:          uniformLocation(program, "octaves"),
		persistence:      uniformLocation(program, "persistence"),
		lacunarity:       uniformLocation(program, "lacunarity"),
	}

	// terrain parameters never change for the life of the device
	gl.UseProgram(program)
	gl.Uniform1ui(d.loc.seed, uint32(d.terrain.Seed))
	gl.Uniform1f(d.loc.scale, float32(d.terrain.Scale))
	gl.Uniform1f(d.loc.baseHeight, float32(d.terrain.BaseHeight))
	gl.Uniform1f(d.loc.gradientStrength, float32(d.terrain.GradientStrength))
	gl.Uniform1i(d.loc.octaves, int32(d.terrain.Octaves))
	gl.Uniform1f(d.loc.persistence, float32(d.terrain.Persistence))
	gl.Uniform1f(d.loc.lacunarity, float32(d.terrain.Lacunarity))
	return nil
}

func (d *Device) teardown() {
	if d.program != 0 {
		gl.DeleteProgram(d.program)
		d.program = 0
	}
	if d.window != nil {
		d.window.Destroy()
		d.window = nil
	}
	glfw.Terminate()
}

// do runs fn on the GL thread and waits for it.
func (d *Device) do(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case d.calls <- func() { errc <- fn() }:
	case <-d.done:
		return gpu.ErrClosed
	}
	return <-errc
}

func (d *Device) create(vertices int, target, usage uint32) (gpu.Buffer, error) {
	if vertices <= 0 {
		return nil, fmt.Errorf("%w: %d vertices", gpu.ErrInvalidSize, vertices)
	}
	b := &buffer{dev: d, target: target, vertices: vertices}
	err := d.do(func() error {
		gl.GenBuffers(1, &b.id)
		gl.BindBuffer(target, b.id)
		gl.BufferData(target, vertices*gpu.VertexSize, nil, usage)
		gl.BindBuffer(target, 0)
		if e := gl.GetError(); e != gl.NO_ERROR {
			gl.DeleteBuffers(1, &b.id)
			return fmt.Errorf("glcompute: allocate %d bytes: 0x%x", vertices*gpu.VertexSize, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CreateStorageBuffer implements gpu.Device.
func (d *Device) CreateStorageBuffer(vertices int) (gpu.Buffer, error) {
	return d.create(vertices, gl.SHADER_STORAGE_BUFFER, gl.DYNAMIC_COPY)
}

// CreateVertexBuffer implements gpu.Device.
func (d *Device) CreateVertexBuffer(vertices int) (gpu.Buffer, error) {
	return d.create(vertices, gl.ARRAY_BUFFER, gl.STATIC_DRAW)
}

// DestroyBuffer implements gpu.Device.
func (d *Device) DestroyBuffer(gb gpu.Buffer) error {
	b, ok := gb.(*buffer)
	if !ok || b.dev != d {
		return gpu.ErrForeign
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return gpu.ErrDestroyed
	}
	b.destroyed = true
	return d.do(func() error {
		gl.DeleteBuffers(1, &b.id)
		return nil
	})
}

// Dispatch implements gpu.Device.
func (d *Device) Dispatch(req gpu.DispatchRequest) error {
	b, ok := req.Target.(*buffer)
	if !ok || b.dev != d {
		return gpu.ErrForeign
	}
	need := req.Cells() * gpu.MaxVerticesPerCell
	if need <= 0 || b.vertices < need {
		return fmt.Errorf("%w: need %d vertices, have %d", gpu.ErrTooSmall, need, b.vertices)
	}
	p := req.Params
	return d.do(func() error {
		gl.UseProgram(d.program)
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, b.id)
		gl.Uniform4f(d.loc.baseOffset, p.BaseOffset[0], p.BaseOffset[1], p.BaseOffset[2], p.BaseOffset[3])
		gl.Uniform4i(d.loc.dimensions, p.Dimensions[0], p.Dimensions[1], p.Dimensions[2], p.Dimensions[3])
		gl.DispatchCompute(groups(p.Dimensions[0]), groups(p.Dimensions[1]), groups(p.Dimensions[2]))
		gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)
		if e := gl.GetError(); e != gl.NO_ERROR {
			return fmt.Errorf("glcompute: dispatch: 0x%x", e)
		}
		return nil
	})
}

// WaitIdle implements gpu.Device.
func (d *Device) WaitIdle() error {
	return d.do(func() error {
		gl.Finish()
		return nil
	})
}

// Close stops the GL thread and destroys the context. Buffers still alive
// are released with it.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		_ = d.do(func() error {
			d.quit = true
			return nil
		})
		close(d.done)
	})
	return nil
}

func groups(n int32) uint32 {
	return uint32((n + workGroupSize - 1) / workGroupSize)
}

func uniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func glError() string {
	if e := gl.GetError(); e != gl.NO_ERROR {
		return fmt.Sprintf("0x%x", e)
	}
	return "no error"
}

func compileComputeShader(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("glcompute: compile kernel: %v", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("glcompute: link kernel: %v", log)
	}

	// shaders can be deleted after linking
	gl.DeleteShader(shader)
	return program, nil
}
