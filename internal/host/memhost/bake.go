package memhost

import (
	"image"
	"image/color"
	gomath "math"

	"github.com/Faultbox/usdz-export/internal/host"
	"github.com/Faultbox/usdz-export/pkg/math"
)

// bakeMargin is how far, in pixels, baked islands are grown so texture
// filtering at seams does not pick up the empty background.
const bakeMargin = 4

// rayBias offsets occlusion rays off the surface they start from.
const rayBias = 1e-4

type triangle struct {
	p      [3]math.Vec3
	n      [3]math.Vec3
	uv     [3]math.Vec2
	corner [3]int
}

// bakeAO writes ambient occlusion of mesh into dst. Occlusion is the share
// of hemisphere rays at each face corner that escape the mesh; the corner
// values are interpolated across each face in UV space.
func bakeAO(mesh *host.Mesh, dst *image.NRGBA, samples int) {
	tris := triangulate(mesh)
	dirs := hemisphere(samples)

	ao := make(map[int]float64)
	for _, t := range tris {
		for k := 0; k < 3; k++ {
			if _, ok := ao[t.corner[k]]; ok {
				continue
			}
			ao[t.corner[k]] = visibility(t.p[k], t.n[k], dirs, tris)
		}
	}

	b := dst.Bounds()
	covered := make([]bool, b.Dx()*b.Dy())
	for _, t := range tris {
		rasterize(dst, covered, t, [3]float64{ao[t.corner[0]], ao[t.corner[1]], ao[t.corner[2]]})
	}
	dilate(dst, covered, bakeMargin)
}

// triangulate fans every polygon into triangles carrying positions,
// shading normals and UVs.
func triangulate(mesh *host.Mesh) []triangle {
	layer := mesh.ActiveUVLayer()
	var tris []triangle
	loop := 0
	for _, p := range mesh.Polygons {
		corner := func(k int) (math.Vec3, math.Vec3, math.Vec2, int) {
			v := mesh.Vertices[p.Vertices[k]]
			n := p.Normal
			if p.Smooth {
				n = v.Normal
			}
			var uv math.Vec2
			if layer != nil && loop+k < len(layer.Data) {
				uv = layer.Data[loop+k]
			}
			return v.Co, n, uv, loop + k
		}
		for k := 1; k+1 < len(p.Vertices); k++ {
			var t triangle
			for j, c := range [3]int{0, k, k + 1} {
				t.p[j], t.n[j], t.uv[j], t.corner[j] = corner(c)
			}
			tris = append(tris, t)
		}
		loop += len(p.Vertices)
	}
	return tris
}

// hemisphere returns n directions spread over the +Z hemisphere on a
// Fibonacci spiral.
func hemisphere(n int) []math.Vec3 {
	golden := gomath.Pi * (3 - gomath.Sqrt(5))
	dirs := make([]math.Vec3, n)
	for i := range dirs {
		z := 1 - (float64(i)+0.5)/float64(n)
		r := gomath.Sqrt(1 - z*z)
		phi := golden * float64(i)
		dirs[i] = math.Vec3{X: r * gomath.Cos(phi), Y: r * gomath.Sin(phi), Z: z}
	}
	return dirs
}

// visibility returns the fraction of rays from p around normal n that hit
// nothing.
func visibility(p, n math.Vec3, dirs []math.Vec3, tris []triangle) float64 {
	if n.Length() < 1e-9 || len(dirs) == 0 {
		return 1
	}
	n = n.Normalize()
	tangent := math.Vec3{X: 1}
	if gomath.Abs(n.X) > 0.9 {
		tangent = math.Vec3{Y: 1}
	}
	tangent = tangent.Sub(n.Scale(tangent.Dot(n))).Normalize()
	bitangent := n.Cross(tangent)

	origin := p.Add(n.Scale(rayBias))
	open := 0
	for _, d := range dirs {
		dir := tangent.Scale(d.X).Add(bitangent.Scale(d.Y)).Add(n.Scale(d.Z))
		if !occluded(origin, dir, tris) {
			open++
		}
	}
	return float64(open) / float64(len(dirs))
}

func occluded(origin, dir math.Vec3, tris []triangle) bool {
	for _, t := range tris {
		if intersect(origin, dir, t.p) {
			return true
		}
	}
	return false
}

// intersect is the Möller-Trumbore ray/triangle test, counting hits in
// front of the origin only.
func intersect(origin, dir math.Vec3, p [3]math.Vec3) bool {
	const eps = 1e-9
	e1 := p[1].Sub(p[0])
	e2 := p[2].Sub(p[0])
	h := dir.Cross(e2)
	a := e1.Dot(h)
	if gomath.Abs(a) < eps {
		return false
	}
	f := 1 / a
	s := origin.Sub(p[0])
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return false
	}
	q := s.Cross(e1)
	v := f * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return false
	}
	return f*e2.Dot(q) > rayBias
}

// rasterize fills the UV footprint of t, interpolating the corner values.
// V runs bottom to top, image rows top to bottom.
func rasterize(dst *image.NRGBA, covered []bool, t triangle, values [3]float64) {
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	var px [3]math.Vec2
	for i, uv := range t.uv {
		px[i] = math.Vec2{X: uv.X * w, Y: (1 - uv.Y) * h}
	}
	area := px[1].Sub(px[0]).Cross(px[2].Sub(px[0]))
	if gomath.Abs(area) < 1e-12 {
		return
	}

	minX := clampInt(int(gomath.Floor(min3(px[0].X, px[1].X, px[2].X))), 0, b.Dx()-1)
	maxX := clampInt(int(gomath.Ceil(max3(px[0].X, px[1].X, px[2].X))), 0, b.Dx()-1)
	minY := clampInt(int(gomath.Floor(min3(px[0].Y, px[1].Y, px[2].Y))), 0, b.Dy()-1)
	maxY := clampInt(int(gomath.Ceil(max3(px[0].Y, px[1].Y, px[2].Y))), 0, b.Dy()-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			c := math.Vec2{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			w0 := px[1].Sub(c).Cross(px[2].Sub(c)) / area
			w1 := px[2].Sub(c).Cross(px[0].Sub(c)) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			v := w0*values[0] + w1*values[1] + w2*values[2]
			g := uint8(gomath.Round(gomath.Max(0, gomath.Min(1, v)) * 255))
			dst.SetNRGBA(b.Min.X+x, b.Min.Y+y, color.NRGBA{R: g, G: g, B: g, A: 255})
			covered[y*b.Dx()+x] = true
		}
	}
}

// dilate grows covered pixels outwards by margin pixels.
func dilate(dst *image.NRGBA, covered []bool, margin int) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	for pass := 0; pass < margin; pass++ {
		var grown []int
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if covered[y*w+x] {
					continue
				}
				for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx, ny := x+d[0], y+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h || !covered[ny*w+nx] {
						continue
					}
					dst.SetNRGBA(b.Min.X+x, b.Min.Y+y, dst.NRGBAAt(b.Min.X+nx, b.Min.Y+ny))
					grown = append(grown, y*w+x)
					break
				}
			}
		}
		if len(grown) == 0 {
			return
		}
		for _, i := range grown {
			covered[i] = true
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min3(a, b, c float64) float64 { return gomath.Min(a, gomath.Min(b, c)) }

func max3(a, b, c float64) float64 { return gomath.Max(a, gomath.Max(b, c)) }
