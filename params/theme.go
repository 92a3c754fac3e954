package params

import (
	"errors"
	"fmt"
	"image/color"
	"sort"

	"golang.org/x/image/colornames"
)

// ErrUnknownTheme is returned for theme identifiers outside the catalog.
var ErrUnknownTheme = errors.New("params: unknown theme")

// Background is the clear color shared by every theme.
var Background = [3]float64{0.02, 0.05, 0.1}

// Theme is a named palette plus parameter overrides.
type Theme struct {
	ID        string
	Primary   color.RGBA
	Secondary color.RGBA
	Params    Set
}

// Set returns the theme overrides including its color channels.
func (t Theme) Set() Set {
	s := t.Params.Clone()
	s[PrimaryR], s[PrimaryG], s[PrimaryB] = channels(t.Primary)
	s[SecondaryR], s[SecondaryG], s[SecondaryB] = channels(t.Secondary)
	return s
}

func channels(c color.RGBA) (r, g, b float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

// RGB builds an opaque color from unit-range channels.
func RGB(r, g, b float64) color.RGBA {
	return color.RGBA{R: unit8(r), G: unit8(g), B: unit8(b), A: 0xff}
}

func unit8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(v*255 + 0.5)
}

// builtinThemes mirrors the face themes: one per geometry name.
func builtinThemes() []Theme {
	return []Theme{
		{ID: "hypercube", Primary: colornames.Magenta, Secondary: colornames.Cyan,
			Params: Set{GlitchIntensity: 0.3}},
		{ID: "tetrahedron", Primary: colornames.Cyan, Secondary: colornames.White,
			Params: Set{GlitchIntensity: 0.1, GridDensity: 16}},
		{ID: "sphere", Primary: colornames.Yellow, Secondary: colornames.Orange,
			Params: Set{GlitchIntensity: 0.2}},
		{ID: "torus", Primary: colornames.Lime, Secondary: colornames.Springgreen,
			Params: Set{GlitchIntensity: 0.25, RotationSpeed: 0.7}},
		{ID: "kleinbottle", Primary: colornames.Deeppink, Secondary: colornames.Violet,
			Params: Set{GlitchIntensity: 0.5}},
		{ID: "fractal", Primary: colornames.Orange, Secondary: colornames.Gold,
			Params: Set{GlitchIntensity: 0.4, GridDensity: 20}},
		{ID: "wave", Primary: colornames.Dodgerblue, Secondary: colornames.Aquamarine,
			Params: Set{GlitchIntensity: 0.15}},
		{ID: "crystal", Primary: colornames.Lightskyblue, Secondary: colornames.Turquoise,
			Params: Set{GlitchIntensity: 0.05, LineThickness: 0.03}},
	}
}

// Catalog resolves theme and geometry identifiers to parameter tables.
// A Catalog is immutable once built.
type Catalog struct {
	themes   map[string]Theme
	geometry map[Geometry]Set
}

// NewCatalog validates themes and per-geometry defaults and builds a Catalog.
// Geometries without an explicit entry use their built-in defaults.
func NewCatalog(themes []Theme, geometryDefaults map[Geometry]Set) (*Catalog, error) {
	c := &Catalog{
		themes:   make(map[string]Theme, len(themes)),
		geometry: make(map[Geometry]Set, len(geometryDefaults)),
	}
	for _, t := range themes {
		if t.ID == "" {
			return nil, errors.New("params: theme without id")
		}
		if t.Params == nil {
			t.Params = Set{}
		}
		if err := t.Params.Validate(); err != nil {
			return nil, fmt.Errorf("theme %q: %w", t.ID, err)
		}
		c.themes[t.ID] = t
	}
	for g, s := range geometryDefaults {
		if !g.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownGeometry, int(g))
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("geometry %s: %w", g, err)
		}
		c.geometry[g] = s.Clone()
	}
	return c, nil
}

// DefaultCatalog returns the built-in theme table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(builtinThemes(), nil)
	if err != nil {
		panic(err) // built-in table is static
	}
	return c
}

// Theme looks up a theme by id.
func (c *Catalog) Theme(id string) (Theme, error) {
	t, ok := c.themes[id]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, id)
	}
	return t, nil
}

// GeometryDefaults returns the parameters applied when g becomes active.
func (c *Catalog) GeometryDefaults(g Geometry) Set {
	if s, ok := c.geometry[g]; ok {
		return s.Clone()
	}
	return g.Defaults()
}

// ThemeIDs returns the sorted theme identifiers.
func (c *Catalog) ThemeIDs() []string {
	ids := make([]string, 0, len(c.themes))
	for id := range c.themes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Themes returns the themes sorted by id.
func (c *Catalog) Themes() []Theme {
	out := make([]Theme, 0, len(c.themes))
	for _, id := range c.ThemeIDs() {
		out = append(out, c.themes[id])
	}
	return out
}

// GeometryOverrides returns a copy of the explicit per-geometry defaults.
func (c *Catalog) GeometryOverrides() map[Geometry]Set {
	out := make(map[Geometry]Set, len(c.geometry))
	for g, s := range c.geometry {
		out[g] = s.Clone()
	}
	return out
}
