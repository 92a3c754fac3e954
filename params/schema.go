package params

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Name identifies one knob of the fixed parameter schema.
type Name string

// Parameter schema. Every geometry and theme understands exactly this set.
const (
	Time                 Name = "time"
	Dimension            Name = "dimension"
	MorphFactor          Name = "morphFactor"
	GridDensity          Name = "gridDensity"
	RotationSpeed        Name = "rotationSpeed"
	Intensity            Name = "intensity"
	ColorShift           Name = "colorShift"
	GlitchIntensity      Name = "glitchIntensity"
	LineThickness        Name = "lineThickness"
	ShellWidth           Name = "shellWidth"
	TetraThickness       Name = "tetraThickness"
	InteractionIntensity Name = "interactionIntensity"

	PrimaryR   Name = "primaryR"
	PrimaryG   Name = "primaryG"
	PrimaryB   Name = "primaryB"
	SecondaryR Name = "secondaryR"
	SecondaryG Name = "secondaryG"
	SecondaryB Name = "secondaryB"
)

// Errors returned by schema validation.
var (
	ErrUnknownParameter = errors.New("params: unknown parameter")
	ErrOutOfRange       = errors.New("params: value out of range")
)

// Range describes the accepted interval and the default of a parameter.
type Range struct {
	Min, Max, Default float64
}

// Contains reports whether v lies inside the closed interval.
func (r Range) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// Clamp limits v to the interval.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return r.Default
	}
	return math.Max(r.Min, math.Min(r.Max, v))
}

var schema = map[Name]Range{
	Time:                 {Min: 0, Max: math.MaxFloat64, Default: 0},
	Dimension:            {Min: 3.0, Max: 4.5, Default: 3.5},
	MorphFactor:          {Min: 0, Max: 2, Default: 0.5},
	GridDensity:          {Min: 0.1, Max: 100, Default: 12},
	RotationSpeed:        {Min: 0, Max: 5, Default: 0.5},
	Intensity:            {Min: 0, Max: 2, Default: 1},
	ColorShift:           {Min: -360, Max: 360, Default: 0},
	GlitchIntensity:      {Min: 0, Max: 1, Default: 0.3},
	LineThickness:        {Min: 0.001, Max: 0.2, Default: 0.02},
	ShellWidth:           {Min: 0, Max: 1, Default: 0.1},
	TetraThickness:       {Min: 0, Max: 0.5, Default: 0.02},
	InteractionIntensity: {Min: 0, Max: 1, Default: 0},

	PrimaryR:   {Min: 0, Max: 1, Default: 1},
	PrimaryG:   {Min: 0, Max: 1, Default: 0},
	PrimaryB:   {Min: 0, Max: 1, Default: 1},
	SecondaryR: {Min: 0, Max: 1, Default: 0},
	SecondaryG: {Min: 0, Max: 1, Default: 1},
	SecondaryB: {Min: 0, Max: 1, Default: 1},
}

// Lookup returns the range of a schema parameter.
func Lookup(n Name) (Range, bool) {
	r, ok := schema[n]
	return r, ok
}

// Known reports whether n belongs to the schema.
func Known(n Name) bool {
	_, ok := schema[n]
	return ok
}

// Names returns all schema parameter names in sorted order.
func Names() []Name {
	names := make([]Name, 0, len(schema))
	for n := range schema {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Default returns the schema default for n, or 0 for unknown names.
func Default(n Name) float64 {
	return schema[n].Default
}

// Set is a parameter snapshot keyed by schema name.
type Set map[Name]float64

// Defaults returns a Set holding every schema parameter at its default.
func Defaults() Set {
	s := make(Set, len(schema))
	for n, r := range schema {
		s[n] = r.Default
	}
	return s
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a copy of s with every key of o written over it.
func (s Set) Merge(o Set) Set {
	out := s.Clone()
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Get returns the value of n, falling back to the schema default.
func (s Set) Get(n Name) float64 {
	if v, ok := s[n]; ok {
		return v
	}
	return Default(n)
}

// Validate checks every key and value of s against the schema.
func (s Set) Validate() error {
	for k, v := range s {
		r, ok := schema[k]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParameter, k)
		}
		if !r.Contains(v) {
			return fmt.Errorf("%w: %s=%g not in [%g, %g]", ErrOutOfRange, k, v, r.Min, r.Max)
		}
	}
	return nil
}

// Clamped returns a copy of s with every known value limited to its range.
// Unknown keys are dropped.
func (s Set) Clamped() Set {
	out := make(Set, len(s))
	for k, v := range s {
		if r, ok := schema[k]; ok {
			out[k] = r.Clamp(v)
		}
	}
	return out
}

// Parse converts a loosely typed mapping, as decoded from a config file or
// supplied by a host, into a validated Set. Unknown keys are rejected.
func Parse(m map[string]float64) (Set, error) {
	s := make(Set, len(m))
	for k, v := range m {
		s[Name(k)] = v
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
