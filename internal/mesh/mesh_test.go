package mesh

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/hyperviz/params"
)

func TestEdgeCounts(t *testing.T) {
	tests := []struct {
		g    params.Geometry
		want int
	}{
		{params.Hypercube, 32},
		{params.Tetrahedron, 10},
		{params.Sphere, 96},
		{params.Torus, 256},
		{params.KleinBottle, 320},
		{params.Fractal, 4 + 16 + 64 + 256},
		{params.Wave, 2 * 12 * 13},
		{params.Crystal, 96},
	}
	for _, tt := range tests {
		if got := len(Edges(tt.g)); got != tt.want {
			t.Errorf("len(Edges(%v)) = %d, want %d", tt.g, got, tt.want)
		}
	}
}

func TestUnknownGeometryIsHypercube(t *testing.T) {
	if got := len(Edges(params.Geometry(99))); got != 32 {
		t.Errorf("len(Edges(99)) = %d, want 32", got)
	}
}

func TestVerticesLayout(t *testing.T) {
	e := Edge{A: mgl32.Vec4{1, 2, 3, 4}, B: mgl32.Vec4{5, 6, 7, 8}}
	v := Vertices([]Edge{e})
	if len(v) != VerticesPerEdge*FloatsPerVertex {
		t.Fatalf("len = %d", len(v))
	}
	// first vertex: A, B, +1
	want := []float32{1, 2, 3, 4, 5, 6, 7, 8, 1}
	for i, w := range want {
		if v[i] != w {
			t.Errorf("v[%d] = %v, want %v", i, v[i], w)
		}
	}
	// third vertex starts at B
	if v[2*FloatsPerVertex] != 5 {
		t.Errorf("third vertex a.x = %v, want 5", v[2*FloatsPerVertex])
	}
	if got := len(Bytes(v)); got != len(v)*4 {
		t.Errorf("len(Bytes) = %d", got)
	}
	if VertexStride != 36 {
		t.Errorf("VertexStride = %d, want 36", VertexStride)
	}
}

func TestBytesLittleEndian(t *testing.T) {
	b := Bytes([]float32{1})
	bits := math.Float32bits(1)
	if b[0] != byte(bits) || b[3] != byte(bits>>24) {
		t.Errorf("Bytes(1) = %v", b)
	}
}

func TestRotationIdentityAtZero(t *testing.T) {
	r := Rotation(0)
	if !r.ApproxEqual(mgl32.Ident4()) {
		t.Errorf("Rotation(0) = %v, want identity", r)
	}
}

func TestRotationPreservesLength(t *testing.T) {
	p := mgl32.Vec4{1, -1, 1, -1}
	q := Rotation(1.3).Mul4x1(p)
	if math.Abs(float64(q.Len()-p.Len())) > 1e-4 {
		t.Errorf("|R p| = %v, want %v", q.Len(), p.Len())
	}
}

func TestProjectOriginStaysCentered(t *testing.T) {
	got := Project(mgl32.Vec4{}, Rotation(0.7), 3.5)
	if got.Len() > 1e-6 {
		t.Errorf("Project(origin) = %v, want (0,0)", got)
	}
	// farther along w appears larger
	near := Project(mgl32.Vec4{1, 0, 0, 0}, Rotation(0), 3.5)
	far := Project(mgl32.Vec4{1, 0, 0, 1}, Rotation(0), 3.5)
	if far[0] <= near[0] {
		t.Errorf("w perspective: %v <= %v", far[0], near[0])
	}
}
