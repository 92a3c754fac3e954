package config

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/image/colornames"

	"github.com/gogpu/hyperviz/params"
)

// JSON is the codec used for configuration documents.
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is the on-disk shape of a configuration file. Every section is
// optional; missing sections keep the built-in values.
type Document struct {
	Themes           []ThemeDoc                    `json:"themes,omitempty"`
	GeometryDefaults map[string]map[string]float64 `json:"geometryDefaults,omitempty"`
	Faces            []Face                        `json:"faces,omitempty"`
}

// ThemeDoc is one theme entry. Colors are CSS color names or #rrggbb.
type ThemeDoc struct {
	ID        string             `json:"id"`
	Primary   string             `json:"primary"`
	Secondary string             `json:"secondary"`
	Params    map[string]float64 `json:"params,omitempty"`
}

// LoadJSON decodes and validates a configuration document.
func LoadJSON(r io.Reader) (*Config, error) {
	var doc Document
	dec := JSON.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return doc.Build()
}

// LoadFile reads a configuration file. Files ending in .js are evaluated
// with LoadScript, everything else is decoded as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if strings.HasSuffix(path, ".js") {
		return LoadScript(string(data))
	}
	return LoadJSON(bytes.NewReader(data))
}

// Build merges the document over the built-in tables and validates the
// result.
func (d Document) Build() (*Config, error) {
	base := params.DefaultCatalog()

	themes := make(map[string]params.Theme)
	var order []string
	for _, t := range base.Themes() {
		themes[t.ID] = t
		order = append(order, t.ID)
	}
	for _, td := range d.Themes {
		t, err := td.theme()
		if err != nil {
			return nil, err
		}
		if _, ok := themes[t.ID]; !ok {
			order = append(order, t.ID)
		}
		themes[t.ID] = t
	}
	list := make([]params.Theme, 0, len(order))
	for _, id := range order {
		list = append(list, themes[id])
	}

	geometry := base.GeometryOverrides()
	for name, m := range d.GeometryDefaults {
		g, err := params.ParseGeometry(name)
		if err != nil {
			return nil, fmt.Errorf("config: geometryDefaults: %w", err)
		}
		s, err := params.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("config: geometryDefaults %s: %w", name, err)
		}
		geometry[g] = g.Defaults().Merge(s)
	}

	catalog, err := params.NewCatalog(list, geometry)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	faces := d.Faces
	if len(faces) == 0 {
		faces = builtinFaces()
	}
	return New(faces, catalog)
}

func (td ThemeDoc) theme() (params.Theme, error) {
	if td.ID == "" {
		return params.Theme{}, fmt.Errorf("config: theme without id")
	}
	primary, err := parseColor(td.Primary)
	if err != nil {
		return params.Theme{}, fmt.Errorf("config: theme %q primary: %w", td.ID, err)
	}
	secondary, err := parseColor(td.Secondary)
	if err != nil {
		return params.Theme{}, fmt.Errorf("config: theme %q secondary: %w", td.ID, err)
	}
	p, err := params.Parse(td.Params)
	if err != nil {
		return params.Theme{}, fmt.Errorf("config: theme %q: %w", td.ID, err)
	}
	return params.Theme{ID: td.ID, Primary: primary, Secondary: secondary, Params: p}, nil
}

// parseColor accepts an SVG color keyword or a #rgb / #rrggbb literal.
func parseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("unknown color %q", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("malformed color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("malformed color %q", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
