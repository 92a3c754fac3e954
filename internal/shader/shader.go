// Package shader holds the WGSL program used by hardware surfaces and
// validates WGSL sources before they reach a device.
package shader

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed hyperviz.wgsl
var source string

// Source returns the built-in WGSL program.
func Source() string { return source }

// Entry points of the built-in program.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// ErrEmpty is returned for an empty shader source.
var ErrEmpty = errors.New("shader: empty source")

// Compile translates WGSL to SPIR-V words. A failure means the program
// cannot be built on any backend.
func Compile(wgsl string) ([]uint32, error) {
	if wgsl == "" {
		return nil, ErrEmpty
	}
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("shader: SPIR-V length %d is not word aligned", len(spirv))
	}
	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words, nil
}

// Validate reports whether wgsl compiles.
func Validate(wgsl string) error {
	_, err := Compile(wgsl)
	return err
}
