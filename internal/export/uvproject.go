package export

import (
	gomath "math"

	"github.com/Faultbox/usdz-export/internal/host"
	"github.com/Faultbox/usdz-export/pkg/math"
)

// boxProjectUVs gives every face corner a coordinate by projecting it onto
// the box side facing the face's dominant normal axis. Coordinates are
// normalized to the mesh bounds so they fall in [0, 1].
func boxProjectUVs(mesh *host.Mesh) []math.Vec2 {
	points := make([]math.Vec3, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		points[i] = v.Co
	}
	bounds := extent(points)
	lo := bounds[0]
	size := bounds[1].Sub(lo)
	norm := func(v, lo, size float64) float64 {
		if size == 0 {
			return 0
		}
		return (v - lo) / size
	}

	out := make([]math.Vec2, 0, mesh.LoopCount())
	for _, p := range mesh.Polygons {
		n := p.Normal
		if n == (math.Vec3{}) {
			n = host.NewellNormal(mesh, p)
		}
		ax, ay, az := gomath.Abs(n.X), gomath.Abs(n.Y), gomath.Abs(n.Z)

		for _, v := range p.Vertices {
			co := mesh.Vertices[v].Co
			x := norm(co.X, lo.X, size.X)
			y := norm(co.Y, lo.Y, size.Y)
			z := norm(co.Z, lo.Z, size.Z)
			switch {
			case ax >= ay && ax >= az:
				out = append(out, math.Vec2{X: y, Y: z})
			case ay >= az:
				out = append(out, math.Vec2{X: x, Y: z})
			default:
				out = append(out, math.Vec2{X: x, Y: y})
			}
		}
	}
	return out
}
