// Package config supplies the face table and visual catalog the
// orchestrator reads: which theme and background geometry each face uses
// and which UI elements carry content surfaces.
//
// The built-in table can be replaced by a JSON document (LoadJSON), by a
// JavaScript program evaluated in an embedded interpreter (LoadScript), and
// reloaded when its file changes (Watcher).
package config

import (
	"fmt"

	"github.com/gogpu/hyperviz/params"
)

// Card describes one content element of a face.
type Card struct {
	ID        string `json:"id"`
	ElementID string `json:"elementId"`
	Theme     string `json:"theme"`
	Geometry  string `json:"geometry"`
	Role      string `json:"role"`
}

// Face is the configuration of one navigable section.
type Face struct {
	Name               string `json:"name"`
	Theme              string `json:"theme"`
	BackgroundGeometry string `json:"backgroundGeometry"`
	Cards              []Card `json:"cards"`
}

// Provider is the read-only face lookup consumed by the orchestrator.
type Provider interface {
	// Face returns the configuration of face index. ok is false for
	// indexes outside the table.
	Face(index int) (f Face, ok bool)
	// FaceCount returns the number of faces.
	FaceCount() int
	// Catalog returns the theme and geometry parameter tables.
	Catalog() *params.Catalog
}

// Config is a validated face table with its catalog.
type Config struct {
	Faces   []Face
	catalog *params.Catalog
}

// New validates faces against catalog.
func New(faces []Face, catalog *params.Catalog) (*Config, error) {
	if catalog == nil {
		catalog = params.DefaultCatalog()
	}
	c := &Config{Faces: faces, catalog: catalog}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the built-in eight-face table.
func Default() *Config {
	c, err := New(builtinFaces(), params.DefaultCatalog())
	if err != nil {
		panic(err) // built-in table is static
	}
	return c
}

// Face implements Provider.
func (c *Config) Face(index int) (Face, bool) {
	if index < 0 || index >= len(c.Faces) {
		return Face{}, false
	}
	return c.Faces[index], true
}

// FaceCount implements Provider.
func (c *Config) FaceCount() int { return len(c.Faces) }

// Catalog implements Provider.
func (c *Config) Catalog() *params.Catalog { return c.catalog }

// Validate checks that every theme, geometry and role named by the table
// is known.
func (c *Config) Validate() error {
	if len(c.Faces) == 0 {
		return fmt.Errorf("config: no faces")
	}
	for i, f := range c.Faces {
		if _, err := c.catalog.Theme(f.Theme); err != nil {
			return fmt.Errorf("config: face %d (%s): %w", i, f.Name, err)
		}
		if _, err := params.ParseGeometry(f.BackgroundGeometry); err != nil {
			return fmt.Errorf("config: face %d (%s): %w", i, f.Name, err)
		}
		seen := make(map[string]bool, len(f.Cards))
		for _, card := range f.Cards {
			if card.ElementID == "" {
				return fmt.Errorf("config: face %d card %q: empty element id", i, card.ID)
			}
			if seen[card.ElementID] {
				return fmt.Errorf("config: face %d: duplicate element %q", i, card.ElementID)
			}
			seen[card.ElementID] = true
			if _, err := c.catalog.Theme(card.Theme); err != nil {
				return fmt.Errorf("config: face %d card %q: %w", i, card.ID, err)
			}
			if _, err := params.ParseGeometry(card.Geometry); err != nil {
				return fmt.Errorf("config: face %d card %q: %w", i, card.ID, err)
			}
			if _, ok := params.RoleModifiers[card.Role]; !ok {
				return fmt.Errorf("config: face %d card %q: unknown role %q", i, card.ID, card.Role)
			}
		}
	}
	return nil
}

func builtinFaces() []Face {
	type spec struct {
		name, theme string
		geoms       []string
	}
	specs := []spec{
		{"HOME", "hypercube", []string{"hypercube", "tetrahedron", "sphere", "torus"}},
		{"TECH", "tetrahedron", []string{"tetrahedron", "hypercube", "fractal", "crystal"}},
		{"MEDIA", "sphere", []string{"sphere", "wave", "torus", "kleinbottle"}},
		{"AUDIO", "torus", []string{"torus", "wave", "sphere", "fractal"}},
		{"QUANTUM", "kleinbottle", []string{"kleinbottle", "hypercube", "fractal", "wave"}},
		{"CONTEXT", "crystal", []string{"crystal", "sphere", "tetrahedron"}},
		{"INNOVATION", "fractal", []string{"fractal", "kleinbottle", "hypercube"}},
		{"RESEARCH", "wave", []string{"wave", "torus", "sphere"}},
	}
	roles := []string{"content", "highlight", "accent", "content"}

	faces := make([]Face, len(specs))
	for i, s := range specs {
		key := lower(s.name)
		f := Face{Name: s.name, Theme: s.theme, BackgroundGeometry: s.theme}
		for j, g := range s.geoms {
			f.Cards = append(f.Cards, Card{
				ID:        fmt.Sprintf("%s-card-%d", key, j+1),
				ElementID: fmt.Sprintf("blog-card-%d-%s", j+1, key),
				Theme:     s.theme,
				Geometry:  g,
				Role:      roles[j],
			})
		}
		faces[i] = f
	}
	return faces
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
