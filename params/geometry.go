package params

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownGeometry is returned for geometry identifiers outside the catalog.
var ErrUnknownGeometry = errors.New("params: unknown geometry")

// Geometry selects the 4D form a surface renders.
type Geometry int

// Recognized geometries. The numeric value is passed to shaders as the
// universe modifier.
const (
	Hypercube Geometry = iota
	Tetrahedron
	Sphere
	Torus
	KleinBottle
	Fractal
	Wave
	Crystal

	geometryCount
)

var geometryNames = [geometryCount]string{
	"hypercube", "tetrahedron", "sphere", "torus",
	"kleinbottle", "fractal", "wave", "crystal",
}

// geometryTraits holds the scale multiplier and visual complexity used by
// both render paths.
var geometryTraits = [geometryCount]struct{ multiplier, complexity float64 }{
	{1.0, 1.0},
	{0.618, 0.5},
	{1.414, 0.8},
	{2.0, 1.2},
	{1.618, 1.5},
	{2.718, 2.0},
	{3.141, 0.7},
	{1.732, 1.3},
}

// String returns the canonical lower-case name.
func (g Geometry) String() string {
	if !g.Valid() {
		return fmt.Sprintf("Geometry(%d)", int(g))
	}
	return geometryNames[g]
}

// Valid reports whether g is a recognized geometry.
func (g Geometry) Valid() bool {
	return g >= 0 && g < geometryCount
}

// Multiplier is the radius scale applied by the software routines.
func (g Geometry) Multiplier() float64 {
	if !g.Valid() {
		return 1
	}
	return geometryTraits[g].multiplier
}

// Complexity is the relative detail level of the geometry.
func (g Geometry) Complexity() float64 {
	if !g.Valid() {
		return 1
	}
	return geometryTraits[g].complexity
}

// Defaults returns the parameters a geometry applies when it becomes active.
func (g Geometry) Defaults() Set {
	c := g.Complexity()
	return Set{
		MorphFactor: schema[MorphFactor].Clamp(0.5 * c),
		ShellWidth:  schema[ShellWidth].Clamp(0.1 * c),
	}
}

// ParseGeometry resolves a geometry name. Matching is case-insensitive and
// accepts "klein" as a short form of kleinbottle.
func ParseGeometry(name string) (Geometry, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "klein" {
		return KleinBottle, nil
	}
	for i, s := range geometryNames {
		if s == n {
			return Geometry(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGeometry, name)
}

// Geometries lists every recognized geometry in index order.
func Geometries() []Geometry {
	out := make([]Geometry, geometryCount)
	for i := range out {
		out[i] = Geometry(i)
	}
	return out
}
