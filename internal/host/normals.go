package host

import "github.com/Faultbox/usdz-export/pkg/math"

// NewellNormal returns the unit normal of a polygon using Newell's method,
// which tolerates non-planar and concave faces.
func NewellNormal(mesh *Mesh, p Polygon) math.Vec3 {
	var n math.Vec3
	for i, vi := range p.Vertices {
		a := mesh.Vertices[vi].Co
		b := mesh.Vertices[p.Vertices[(i+1)%len(p.Vertices)]].Co
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n.Normalize()
}

// RecalcNormals recomputes face normals and sets each vertex normal to the
// normalized sum of the normals of the faces using it.
func (m *Mesh) RecalcNormals() {
	sums := make([]math.Vec3, len(m.Vertices))
	for i := range m.Polygons {
		n := NewellNormal(m, m.Polygons[i])
		m.Polygons[i].Normal = n
		for _, v := range m.Polygons[i].Vertices {
			sums[v] = sums[v].Add(n)
		}
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = sums[i].Normalize()
	}
}
