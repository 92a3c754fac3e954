package software

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/gogpu/hyperviz/params"
)

// routine draws the accent pattern of one geometry around the origin. The
// stroke color and width are set by the caller.
type routine func(dc *gg.Context, radius float64, p params.Set, t float64)

var routines = [...]routine{
	params.Hypercube:   lattice,
	params.Tetrahedron: triangle,
	params.Sphere:      shells,
	params.Torus:       torusRing,
	params.KleinBottle: figureEight,
	params.Fractal:     branches,
	params.Wave:        wave,
	params.Crystal:     crystal,
}

// lattice draws a grid whose spacing follows gridDensity.
func lattice(dc *gg.Context, radius float64, p params.Set, t float64) {
	n := int(math.Max(2, math.Min(p.Get(params.GridDensity)/2, 16)))
	step := 2 * radius / float64(n)
	shift := math.Mod(t*10, step)
	for i := 0; i <= n; i++ {
		o := -radius + float64(i)*step + shift
		dc.DrawLine(o, -radius, o, radius)
		dc.DrawLine(-radius, o, radius, o)
	}
	dc.Stroke()
}

func triangle(dc *gg.Context, radius float64, p params.Set, t float64) {
	dc.SetLineWidth(3)
	a := t * p.Get(params.RotationSpeed)
	for i := 0; i < 3; i++ {
		th := a + float64(i)*2*math.Pi/3
		x, y := radius*math.Cos(th), radius*math.Sin(th)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
	dc.Stroke()
}

func shells(dc *gg.Context, radius float64, p params.Set, t float64) {
	for i := 1; i <= 5; i++ {
		r := radius * float64(i) / 5 * (1 + 0.05*math.Sin(t+float64(i)*0.5))
		dc.DrawCircle(0, 0, r)
		dc.Stroke()
	}
}

func torusRing(dc *gg.Context, radius float64, p params.Set, t float64) {
	const segments = 16
	minor := radius * (0.2 + 0.1*p.Get(params.MorphFactor))
	for i := 0; i < segments; i++ {
		a := float64(i)*2*math.Pi/segments + t*p.Get(params.RotationSpeed)
		dc.DrawCircle(radius*0.7*math.Cos(a), radius*0.7*math.Sin(a), minor)
		dc.Stroke()
	}
}

func figureEight(dc *gg.Context, radius float64, p params.Set, t float64) {
	const segments = 20
	for i := 0; i <= segments; i++ {
		u := float64(i)*2*math.Pi/segments + t*0.5
		x := radius * math.Sin(u)
		y := radius * math.Sin(u) * math.Cos(u)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
}

func branches(dc *gg.Context, radius float64, p params.Set, t float64) {
	var rec func(x, y, length, angle float64, depth int)
	rec = func(x, y, length, angle float64, depth int) {
		if depth == 0 {
			return
		}
		x2, y2 := x+length*math.Cos(angle), y+length*math.Sin(angle)
		dc.DrawLine(x, y, x2, y2)
		spread := 0.5 + 0.2*math.Sin(t)
		rec(x2, y2, length*0.6, angle-spread, depth-1)
		rec(x2, y2, length*0.6, angle+spread, depth-1)
	}
	for k := 0; k < 4; k++ {
		rec(0, 0, radius*0.5, float64(k)*math.Pi/2+t*0.2, 4)
	}
	dc.Stroke()
}

func wave(dc *gg.Context, radius float64, p params.Set, t float64) {
	const segments = 50
	freq := 1 + p.Get(params.MorphFactor)*2
	for i := 0; i <= segments; i++ {
		x := -radius + 2*radius*float64(i)/segments
		y := radius * 0.3 * math.Sin(x/radius*math.Pi*freq+t*2)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()
}

func crystal(dc *gg.Context, radius float64, p params.Set, t float64) {
	for i := 0; i < 6; i++ {
		a := float64(i)*math.Pi/3 + t*0.1
		dc.DrawLine(0, 0, radius*math.Cos(a), radius*math.Sin(a))
	}
	dc.Stroke()
	for ring := 1; ring <= 3; ring++ {
		r := radius * float64(ring) / 3
		for i := 0; i <= 6; i++ {
			a := float64(i)*math.Pi/3 + t*0.1
			if i == 0 {
				dc.MoveTo(r*math.Cos(a), r*math.Sin(a))
			} else {
				dc.LineTo(r*math.Cos(a), r*math.Sin(a))
			}
		}
		dc.Stroke()
	}
}
