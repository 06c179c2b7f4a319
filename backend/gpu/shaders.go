//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/fill.wgsl
var fillShaderSource string

//go:embed shaders/blend.wgsl
var blendShaderSource string

//go:embed shaders/resample.wgsl
var resampleShaderSource string

// kernel identifies a compute shader.
type kernel uint8

const (
	kernelFill kernel = iota
	kernelBlend
	kernelResample
)

func (k kernel) String() string {
	if int(k) < len(kernels) {
		return kernels[k].name
	}
	return "unknown"
}

var kernels = [...]struct {
	id     kernel
	name   string
	source string
	// sourced kernels read a second surface at binding 2.
	sourced bool
}{
	kernelFill:     {kernelFill, "fill", fillShaderSource, false},
	kernelBlend:    {kernelBlend, "blend", blendShaderSource, true},
	kernelResample: {kernelResample, "resample", resampleShaderSource, true},
}

// compileShader compiles WGSL source to SPIR-V words.
func compileShader(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}
