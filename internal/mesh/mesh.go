// Package mesh builds 4D wireframes for each geometry and expands them into
// the thick-line vertex stream consumed by the hardware shader.
//
// The same rotation and projection used by the shader is available on the
// CPU so the software renderer draws the same figure.
package mesh

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/hyperviz/params"
)

// Edge is a line segment between two 4D points.
type Edge struct {
	A, B mgl32.Vec4
}

// Vertex layout shared with the WGSL vertex stage.
const (
	FloatsPerVertex = 9
	VertexStride    = FloatsPerVertex * 4
	VerticesPerEdge = 6
)

// Edges returns the wireframe for g. Unknown geometries yield the
// hypercube.
func Edges(g params.Geometry) []Edge {
	switch g {
	case params.Tetrahedron:
		return simplex()
	case params.Sphere:
		return hypersphere(32)
	case params.Torus:
		return cliffordTorus(16, 8)
	case params.KleinBottle:
		return kleinBottle(20, 8)
	case params.Fractal:
		return fractalTree(4)
	case params.Wave:
		return waveGrid(12)
	case params.Crystal:
		return cell24()
	default:
		return tesseract()
	}
}

// Vertices expands edges into a triangle list. Each edge becomes a quad of
// two triangles; every vertex carries both endpoints and a side sign so the
// vertex stage can offset it along the projected normal.
func Vertices(edges []Edge) []float32 {
	out := make([]float32, 0, len(edges)*VerticesPerEdge*FloatsPerVertex)
	put := func(a, b mgl32.Vec4, side float32) {
		out = append(out, a[0], a[1], a[2], a[3], b[0], b[1], b[2], b[3], side)
	}
	for _, e := range edges {
		// The far end sees the edge reversed, so its normal flips and the
		// side sign flips with it.
		put(e.A, e.B, 1)
		put(e.A, e.B, -1)
		put(e.B, e.A, -1)
		put(e.B, e.A, -1)
		put(e.A, e.B, -1)
		put(e.B, e.A, 1)
	}
	return out
}

// Bytes encodes vertex floats little-endian for upload.
func Bytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Rotation returns the combined XW and YZ rotation at angle t, matching the
// shader's rotate4.
func Rotation(t float32) mgl32.Mat4 {
	c, s := float32(math.Cos(float64(t))), float32(math.Sin(float64(t)))
	xw := mgl32.Mat4{
		c, 0, 0, s,
		0, 1, 0, 0,
		0, 0, 1, 0,
		-s, 0, 0, c,
	}
	c2, s2 := float32(math.Cos(float64(t*0.7))), float32(math.Sin(float64(t*0.7)))
	yz := mgl32.Mat4{
		1, 0, 0, 0,
		0, c2, s2, 0,
		0, -s2, c2, 0,
		0, 0, 0, 1,
	}
	return yz.Mul4(xw)
}

// Project rotates p and applies the 4D then 3D perspective divide. The
// result is in normalized device coordinates before aspect correction.
func Project(p mgl32.Vec4, rot mgl32.Mat4, dimension float32) mgl32.Vec2 {
	r := rot.Mul4x1(p)
	w := 1 / maxf(dimension-r[3], 0.1)
	p3 := mgl32.Vec3{r[0] * w, r[1] * w, r[2] * w}
	z := 1 / maxf(3-p3[2], 0.1)
	return mgl32.Vec2{p3[0] * z, p3[1] * z}
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func tesseract() []Edge {
	var verts []mgl32.Vec4
	for i := 0; i < 16; i++ {
		var v mgl32.Vec4
		for axis := 0; axis < 4; axis++ {
			v[axis] = -1
			if i&(1<<axis) != 0 {
				v[axis] = 1
			}
		}
		verts = append(verts, v)
	}
	var edges []Edge
	for i := 0; i < 16; i++ {
		for axis := 0; axis < 4; axis++ {
			j := i | 1<<axis
			if j != i {
				edges = append(edges, Edge{verts[i], verts[j]})
			}
		}
	}
	return edges
}

// simplex is the 5-cell, the 4D analogue of the tetrahedron.
func simplex() []Edge {
	k := float32(-1 / math.Sqrt(5))
	verts := []mgl32.Vec4{
		{1, 1, 1, k},
		{1, -1, -1, k},
		{-1, 1, -1, k},
		{-1, -1, 1, k},
		{0, 0, 0, -4 * k},
	}
	var edges []Edge
	for i := range verts {
		for j := i + 1; j < len(verts); j++ {
			edges = append(edges, Edge{verts[i], verts[j]})
		}
	}
	return edges
}

// hypersphere draws three orthogonal great circles of the unit 3-sphere.
func hypersphere(segments int) []Edge {
	planes := [][2]int{{0, 1}, {2, 3}, {0, 3}}
	var edges []Edge
	for _, pl := range planes {
		point := func(i int) mgl32.Vec4 {
			a := 2 * math.Pi * float64(i) / float64(segments)
			var v mgl32.Vec4
			v[pl[0]] = float32(math.Cos(a))
			v[pl[1]] = float32(math.Sin(a))
			return v
		}
		for i := 0; i < segments; i++ {
			edges = append(edges, Edge{point(i), point(i + 1)})
		}
	}
	return edges
}

func cliffordTorus(major, minor int) []Edge {
	r := float32(1 / math.Sqrt2)
	point := func(i, j int) mgl32.Vec4 {
		a := 2 * math.Pi * float64(i) / float64(major)
		b := 2 * math.Pi * float64(j) / float64(minor)
		return mgl32.Vec4{
			r * float32(math.Cos(a)), r * float32(math.Sin(a)),
			r * float32(math.Cos(b)), r * float32(math.Sin(b)),
		}
	}
	return grid(major, minor, point)
}

func kleinBottle(major, minor int) []Edge {
	const big, small = 0.8, 0.35
	point := func(i, j int) mgl32.Vec4 {
		u := 2 * math.Pi * float64(i) / float64(major)
		v := 2 * math.Pi * float64(j) / float64(minor)
		ring := big + small*math.Cos(v)
		return mgl32.Vec4{
			float32(ring * math.Cos(u)),
			float32(ring * math.Sin(u)),
			float32(small * math.Sin(v) * math.Cos(u/2)),
			float32(small * math.Sin(v) * math.Sin(u/2)),
		}
	}
	return grid(major, minor, point)
}

// grid connects a wrapped parametric lattice along both directions.
func grid(nu, nv int, point func(i, j int) mgl32.Vec4) []Edge {
	edges := make([]Edge, 0, nu*nv*2)
	for i := 0; i < nu; i++ {
		for j := 0; j < nv; j++ {
			p := point(i, j)
			edges = append(edges, Edge{p, point(i+1, j)}, Edge{p, point(i, j+1)})
		}
	}
	return edges
}

// fractalTree branches four ways per level along the 4D axes.
func fractalTree(depth int) []Edge {
	dirs := []mgl32.Vec4{{1, 0, 0, 0.3}, {0, 1, 0, -0.3}, {-1, 0, 0.3, 0}, {0, -1, -0.3, 0}}
	var edges []Edge
	var branch func(from mgl32.Vec4, length float32, level int)
	branch = func(from mgl32.Vec4, length float32, level int) {
		if level == 0 {
			return
		}
		for k, d := range dirs {
			// rotate the branch set per level so children fan out
			dd := dirs[(k+level)%len(dirs)].Add(d).Normalize()
			to := from.Add(dd.Mul(length))
			edges = append(edges, Edge{from, to})
			branch(to, length*0.5, level-1)
		}
	}
	branch(mgl32.Vec4{}, 0.8, depth)
	return edges
}

func waveGrid(n int) []Edge {
	point := func(i, j int) mgl32.Vec4 {
		x := -1 + 2*float64(i)/float64(n)
		y := -1 + 2*float64(j)/float64(n)
		return mgl32.Vec4{float32(x), float32(y), float32(0.3 * math.Sin(3*x)), float32(0.3 * math.Cos(3*y))}
	}
	var edges []Edge
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			if i < n {
				edges = append(edges, Edge{point(i, j), point(i+1, j)})
			}
			if j < n {
				edges = append(edges, Edge{point(i, j), point(i, j+1)})
			}
		}
	}
	return edges
}

// cell24 is the 24-cell: permutations of (±1, ±1, 0, 0) joined at
// distance √2.
func cell24() []Edge {
	var verts []mgl32.Vec4
	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			for _, sa := range []float32{-1, 1} {
				for _, sb := range []float32{-1, 1} {
					var v mgl32.Vec4
					v[a], v[b] = sa, sb
					verts = append(verts, v)
				}
			}
		}
	}
	var edges []Edge
	for i := range verts {
		for j := i + 1; j < len(verts); j++ {
			d := verts[i].Sub(verts[j]).Len()
			if math.Abs(float64(d)-math.Sqrt2) < 1e-4 {
				edges = append(edges, Edge{verts[i], verts[j]})
			}
		}
	}
	return edges
}
