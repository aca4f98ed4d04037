package host

import (
	"testing"

	"github.com/Faultbox/usdz-export/pkg/math"
)

func TestRecalcNormals(t *testing.T) {
	// Two faces folded along the Y axis: one facing +Z, one facing +X.
	m := &Mesh{
		Vertices: []Vertex{
			{Co: math.Vec3{X: -1}},
			{Co: math.Vec3{}},
			{Co: math.Vec3{Y: 1}},
			{Co: math.Vec3{X: -1, Y: 1}},
			{Co: math.Vec3{Z: -1}},
			{Co: math.Vec3{Y: 1, Z: -1}},
		},
		Polygons: []Polygon{
			{Vertices: []int{0, 1, 2, 3}},
			{Vertices: []int{1, 4, 5, 2}},
		},
	}
	m.RecalcNormals()

	if got := m.Polygons[0].Normal; got.Distance(math.Vec3{Z: 1}) > 1e-9 {
		t.Errorf("face 0 normal = %v, want +Z", got)
	}
	if got := m.Polygons[1].Normal; got.Distance(math.Vec3{X: 1}) > 1e-9 {
		t.Errorf("face 1 normal = %v, want +X", got)
	}
	// Shared vertices average both faces.
	want := math.Vec3{X: 1, Z: 1}.Normalize()
	if got := m.Vertices[1].Normal; got.Distance(want) > 1e-9 {
		t.Errorf("shared vertex normal = %v, want %v", got, want)
	}
	if got := m.Vertices[0].Normal; got.Distance(math.Vec3{Z: 1}) > 1e-9 {
		t.Errorf("vertex 0 normal = %v, want +Z", got)
	}
}

func TestMeshHelpers(t *testing.T) {
	m := &Mesh{
		Polygons: []Polygon{{Vertices: []int{0, 1, 2}}, {Vertices: []int{0, 2, 3, 4}}},
		UVLayers: []UVLayer{{Name: "UVMap"}},
		ActiveUV: 0,
	}
	if m.LoopCount() != 7 {
		t.Errorf("LoopCount() = %d, want 7", m.LoopCount())
	}
	if m.ActiveUVLayer() == nil {
		t.Error("expected active uv layer")
	}
	m.ActiveUV = 3
	if m.ActiveUVLayer() != nil {
		t.Error("out of range active index should yield nil")
	}

	var s *Socket
	if s.Scalar(2) != 2 || s.Color([4]float64{1, 2, 3, 4}) != [4]float64{1, 2, 3, 4} {
		t.Error("nil socket should return fallbacks")
	}
	s = &Socket{Default: []float64{0.5, 0.25}}
	if got := s.Color([4]float64{0, 0, 0, 1}); got != [4]float64{0.5, 0.25, 0, 1} {
		t.Errorf("Color() = %v", got)
	}
}
