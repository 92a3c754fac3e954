// Package software renders the visualizations on the CPU with
// fogleman/gg. It is the fallback used by surfaces that hold no hardware
// context.
package software

import (
	"image"
	"math"

	"github.com/fogleman/gg"

	"github.com/gogpu/hyperviz/internal/mesh"
	"github.com/gogpu/hyperviz/params"
)

// Frame is the input for one software frame.
type Frame struct {
	Geometry    params.Geometry
	Params      params.Set
	TimeSec     float64
	Interaction float64
}

// trailAlpha is the opacity of the background wash drawn each frame. Old
// frames fade out instead of being cleared.
const trailAlpha = 0.1

// lineScale converts lineThickness to pixels per geometry.
var lineScale = [...]float64{100, 80, 50, 60, 70, 40, 30, 50}

type Renderer struct {
	context *gg.Context
	width   int
	height  int
	frames  uint64
}

func NewRenderer(width, height int) *Renderer {
	width, height = clampSize(width, height)
	return &Renderer{context: gg.NewContext(width, height), width: width, height: height}
}

func clampSize(w, h int) (int, int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Resize replaces the canvas. The trail is lost.
func (r *Renderer) Resize(width, height int) {
	width, height = clampSize(width, height)
	if width == r.width && height == r.height {
		return
	}
	r.context = gg.NewContext(width, height)
	r.width, r.height = width, height
	r.frames = 0
}

// Size returns the canvas size.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Frames returns how many frames were drawn since the last resize.
func (r *Renderer) Frames() uint64 { return r.frames }

// Image returns the canvas.
func (r *Renderer) Image() image.Image { return r.context.Image() }

// SavePNG writes the canvas to path.
func (r *Renderer) SavePNG(path string) error { return r.context.SavePNG(path) }

// Render draws one frame.
func (r *Renderer) Render(f Frame) {
	p := f.Params
	if p == nil {
		p = params.Defaults()
	}
	dc := r.context
	bg := params.Background

	alpha := trailAlpha
	if r.frames == 0 {
		alpha = 1
	}
	dc.SetRGBA(bg[0], bg[1], bg[2], alpha)
	dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
	dc.Fill()

	g := f.Geometry
	if !g.Valid() {
		g = params.Hypercube
	}
	cx, cy := float64(r.width)/2, float64(r.height)/2
	scale := 1 + f.Interaction*0.2
	radius := math.Min(cx, cy) * 0.6 * g.Multiplier() * scale
	hue := math.Mod(float64(g)*45+p.Get(params.ColorShift), 360)
	if hue < 0 {
		hue += 360
	}
	intensity := p.Get(params.Intensity)
	width := p.Get(params.LineThickness) * lineScale[g]

	dc.Push()
	dc.Translate(cx, cy)
	r.drawWireframe(g, p, f.TimeSec, radius, width, intensity)
	accent := hsl(hue, 0.8, 0.6)
	dc.SetRGBA(accent[0], accent[1], accent[2], clamp01(0.6*intensity))
	dc.SetLineWidth(math.Max(1, width*0.5))
	routines[g](dc, radius, p, f.TimeSec)
	dc.Pop()
	glow(dc, cx, cy, p, f.TimeSec)

	r.frames++
}

// drawWireframe projects the 4D mesh with the same rotation the shader
// uses.
func (r *Renderer) drawWireframe(g params.Geometry, p params.Set, t, radius, width, intensity float64) {
	dc := r.context
	rot := mesh.Rotation(float32(t * p.Get(params.RotationSpeed)))
	dim := float32(p.Get(params.Dimension))

	pr := [3]float64{p.Get(params.PrimaryR), p.Get(params.PrimaryG), p.Get(params.PrimaryB)}
	dc.SetRGBA(pr[0], pr[1], pr[2], clamp01(intensity))
	dc.SetLineWidth(math.Max(0.5, width))
	for _, e := range mesh.Edges(g) {
		a := mesh.Project(e.A, rot, dim)
		b := mesh.Project(e.B, rot, dim)
		dc.DrawLine(float64(a[0])*radius*2, float64(a[1])*radius*2, float64(b[0])*radius*2, float64(b[1])*radius*2)
	}
	dc.Stroke()
}

// glow draws a pulsing spot at (cx, cy). Gradients are sampled in device
// pixels, so it must be drawn without a transform.
func glow(dc *gg.Context, cx, cy float64, p params.Set, t float64) {
	r := 15 + math.Sin(3*t)*8
	sc := [3]float64{p.Get(params.SecondaryR), p.Get(params.SecondaryG), p.Get(params.SecondaryB)}
	grad := gg.NewRadialGradient(cx, cy, 0, cx, cy, r)
	grad.AddColorStop(0, rgba(sc, 0.8))
	grad.AddColorStop(1, rgba(sc, 0))
	dc.SetFillStyle(grad)
	dc.DrawCircle(cx, cy, r)
	dc.Fill()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
