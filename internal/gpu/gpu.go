// Package gpu defines the compute capability the chunk pipeline drives: buffer
// allocation, one compute dispatch per chunk and an idle wait.
package gpu

import (
	"errors"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxVerticesPerCell is the most vertices the meshing kernel emits for one
// voxel cell: three owned faces, two triangles each.
const MaxVerticesPerCell = 18

// Vertex matches the kernel's std430 output layout.
type Vertex struct {
	Position mgl32.Vec4
	Normal   mgl32.Vec4
}

// VertexSize is the size of one Vertex in bytes.
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// IsSentinel reports whether v marks unused capacity. Only the xyz of the
// position are compared; a real vertex at the world origin is
// indistinguishable from a sentinel.
func (v Vertex) IsSentinel() bool {
	return v.Position[0] == 0 && v.Position[1] == 0 && v.Position[2] == 0
}

// Params is the push-constant block of one dispatch.
type Params struct {
	BaseOffset mgl32.Vec4
	Dimensions [4]int32
}

// DispatchRequest asks the device to run the meshing kernel over a grid of
// cells and write the result into Target.
type DispatchRequest struct {
	Params Params
	Target Buffer
}

// Cells returns the number of cells the dispatch covers.
func (r DispatchRequest) Cells() int {
	d := r.Params.Dimensions
	return int(d[0]) * int(d[1]) * int(d[2])
}

// Buffer is a device-resident vertex buffer. Map exposes it to the host; the
// returned slice is only valid until Unmap.
type Buffer interface {
	Len() int
	Map() ([]Vertex, error)
	Unmap() error
}

// Device is the GPU compute capability.
//
// Dispatch may return before the kernel finishes; WaitIdle blocks until
// every submitted dispatch has completed and its output is visible to Map.
type Device interface {
	CreateStorageBuffer(vertices int) (Buffer, error)
	CreateVertexBuffer(vertices int) (Buffer, error)
	DestroyBuffer(b Buffer) error
	Dispatch(req DispatchRequest) error
	WaitIdle() error
	Close() error
}

var (
	ErrDestroyed   = errors.New("gpu: buffer destroyed")
	ErrForeign     = errors.New("gpu: buffer belongs to another device")
	ErrTooSmall    = errors.New("gpu: target buffer too small for dispatch")
	ErrClosed      = errors.New("gpu: device closed")
	ErrInvalidSize = errors.New("gpu: invalid buffer size")
)
