// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/hyperviz/params"
)

// Context is one hardware drawing context: a device queue and an offscreen
// target that a surface renders into. It satisfies pool.Context.
type Context interface {
	// Backend names the graphics API the context was created with.
	Backend() string
	// Resize reallocates the render target.
	Resize(width, height int) error
	// Build compiles the program and uploads the wireframe for g. It
	// returns an error wrapping ErrCompile when the program cannot be
	// built.
	Build(g params.Geometry) error
	// Draw renders one frame with u. An error wrapping ErrContextLost
	// means the device stopped responding.
	Draw(u Uniforms) error
	Destroy()
}

// UniformSize is the size in bytes of the uniform block: seven vec4.
const UniformSize = 7 * 16

// Uniforms is the per-frame shader input.
type Uniforms struct {
	Width, Height float32
	Time          float32 // seconds
	Dimension     float32

	MorphFactor   float32
	GridDensity   float32
	RotationSpeed float32
	Intensity     float32

	GlitchIntensity      float32
	ColorShift           float32
	LineThickness        float32
	InteractionIntensity float32

	ShellWidth       float32
	TetraThickness   float32
	UniverseModifier float32

	Primary, Secondary, Background [3]float32
}

// UniformsFrom builds the uniform block from a parameter set.
func UniformsFrom(p params.Set, g params.Geometry, width, height int, timeSec float64) Uniforms {
	f := func(n params.Name) float32 { return float32(p.Get(n)) }
	return Uniforms{
		Width:                float32(width),
		Height:               float32(height),
		Time:                 float32(timeSec),
		Dimension:            f(params.Dimension),
		MorphFactor:          f(params.MorphFactor),
		GridDensity:          f(params.GridDensity),
		RotationSpeed:        f(params.RotationSpeed),
		Intensity:            f(params.Intensity),
		GlitchIntensity:      f(params.GlitchIntensity),
		ColorShift:           f(params.ColorShift),
		LineThickness:        f(params.LineThickness),
		InteractionIntensity: f(params.InteractionIntensity),
		ShellWidth:           f(params.ShellWidth),
		TetraThickness:       f(params.TetraThickness),
		UniverseModifier:     float32(g),
		Primary:              [3]float32{f(params.PrimaryR), f(params.PrimaryG), f(params.PrimaryB)},
		Secondary:            [3]float32{f(params.SecondaryR), f(params.SecondaryG), f(params.SecondaryB)},
		Background: [3]float32{
			float32(params.Background[0]), float32(params.Background[1]), float32(params.Background[2]),
		},
	}
}

// Bytes encodes u in the std140 layout of the WGSL Uniforms struct.
func (u Uniforms) Bytes() []byte {
	vals := [UniformSize / 4]float32{
		u.Width, u.Height, u.Time, u.Dimension,
		u.MorphFactor, u.GridDensity, u.RotationSpeed, u.Intensity,
		u.GlitchIntensity, u.ColorShift, u.LineThickness, u.InteractionIntensity,
		u.ShellWidth, u.TetraThickness, u.UniverseModifier, 0,
		u.Primary[0], u.Primary[1], u.Primary[2], 1,
		u.Secondary[0], u.Secondary[1], u.Secondary[2], 1,
		u.Background[0], u.Background[1], u.Background[2], 1,
	}
	buf := make([]byte, UniformSize)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
