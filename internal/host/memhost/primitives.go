package memhost

import (
	"github.com/Faultbox/usdz-export/internal/host"
	"github.com/Faultbox/usdz-export/pkg/math"
)

// Cube returns an axis aligned cube of edge size centered on the origin.
// It has no UV layer.
func Cube(name string, size float64) *host.Mesh {
	h := size / 2
	mesh := &host.Mesh{Name: name}
	for _, c := range [8][3]float64{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	} {
		mesh.Vertices = append(mesh.Vertices, host.Vertex{Co: math.Vec3{X: c[0] * h, Y: c[1] * h, Z: c[2] * h}})
	}
	for _, f := range [6][]int{
		{0, 3, 2, 1}, // -Z
		{4, 5, 6, 7}, // +Z
		{0, 1, 5, 4}, // -Y
		{2, 3, 7, 6}, // +Y
		{1, 2, 6, 5}, // +X
		{0, 4, 7, 3}, // -X
	} {
		mesh.Polygons = append(mesh.Polygons, host.Polygon{Vertices: f})
	}
	mesh.RecalcNormals()
	return mesh
}

// Plane returns a square in the XY plane facing +Z with a UV layer
// covering [0, 1].
func Plane(name string, size float64) *host.Mesh {
	h := size / 2
	mesh := &host.Mesh{
		Name: name,
		Vertices: []host.Vertex{
			{Co: math.Vec3{X: -h, Y: -h}},
			{Co: math.Vec3{X: h, Y: -h}},
			{Co: math.Vec3{X: h, Y: h}},
			{Co: math.Vec3{X: -h, Y: h}},
		},
		Polygons: []host.Polygon{{Vertices: []int{0, 1, 2, 3}}},
		UVLayers: []host.UVLayer{{
			Name: "UVMap",
			Data: []math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		}},
	}
	mesh.RecalcNormals()
	return mesh
}
