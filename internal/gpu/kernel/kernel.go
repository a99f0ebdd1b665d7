// Package kernel holds the meshing compute kernel sources and builds the
// SPIR-V artifact from the WGSL source.
package kernel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gogpu/naga"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

var errNotSPIRV = errors.New("kernel: output is not a SPIR-V module")

// CompileSPIRV compiles WGSL source into little-endian SPIR-V words.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	raw, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile kernel: %w", err)
	}
	if len(raw) < 4 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", errNotSPIRV, len(raw))
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: magic 0x%08x", errNotSPIRV, words[0])
	}
	return words, nil
}

// WriteMeshSPIRV compiles the meshing kernel and writes the module to w.
func WriteMeshSPIRV(w io.Writer) (int, error) {
	words, err := CompileSPIRV(MeshWGSL)
	if err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, words); err != nil {
		return 0, fmt.Errorf("write spirv: %w", err)
	}
	return len(words) * 4, nil
}
