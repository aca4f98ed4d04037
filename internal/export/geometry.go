package export

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/usdz-export/internal/host"
	"github.com/Faultbox/usdz-export/pkg/math"
	"github.com/Faultbox/usdz-export/pkg/usd"
)

// weightEpsilon is the smallest vertex group weight treated as an influence.
const weightEpsilon = 1e-6

// Geometry errors.
var (
	ErrMalformedMesh = errors.New("malformed mesh")
	ErrMaterialIndex = errors.New("face material index out of range")
)

// extractMeshes converts the geometry of a mesh object into one record, or
// one record per used material slot when the object has several.
func extractMeshes(obj host.Object) ([]*usd.Mesh, error) {
	mesh := obj.Mesh()
	if mesh == nil {
		return nil, nil
	}
	if err := validateMesh(mesh); err != nil {
		return nil, fmt.Errorf("%s: %w", obj.Name(), err)
	}

	uvs := cornerUVs(mesh)
	weights := vertexWeights(obj, mesh)
	skeletonPath, animationPath := skeletonPaths(obj)
	base := SanitizeIdentifier(mesh.Name)
	slots := obj.MaterialSlots()

	g := geometry{mesh: mesh, uvs: uvs, weights: weights, loopStart: loopStarts(mesh)}

	var records []*usd.Mesh
	if len(slots) <= 1 {
		all := make([]int, len(mesh.Polygons))
		for i := range all {
			all[i] = i
		}
		material := usd.DefaultMaterialName
		if len(slots) == 1 {
			material = materialName(slots[0])
		}
		records = append(records, g.record(base, material, all, false))
	} else {
		bySlot := make(map[int][]int)
		for i, p := range mesh.Polygons {
			if p.Material < 0 || p.Material >= len(slots) {
				return nil, fmt.Errorf("%s: face %d uses slot %d of %d: %w",
					obj.Name(), i, p.Material, len(slots), ErrMaterialIndex)
			}
			bySlot[p.Material] = append(bySlot[p.Material], i)
		}
		for slot := range slots {
			faces, ok := bySlot[slot]
			if !ok {
				continue
			}
			material := materialName(slots[slot])
			records = append(records, g.record(base+"_"+material, material, faces, true))
		}
	}

	for _, r := range records {
		r.SkeletonPath = skeletonPath
		r.AnimationPath = animationPath
	}
	return records, nil
}

func validateMesh(mesh *host.Mesh) error {
	for i, p := range mesh.Polygons {
		if len(p.Vertices) < 3 {
			return fmt.Errorf("%w: face %d has %d corners", ErrMalformedMesh, i, len(p.Vertices))
		}
		for _, v := range p.Vertices {
			if v < 0 || v >= len(mesh.Vertices) {
				return fmt.Errorf("%w: face %d references vertex %d of %d", ErrMalformedMesh, i, v, len(mesh.Vertices))
			}
		}
	}
	if layer := mesh.ActiveUVLayer(); layer != nil && len(layer.Data) != mesh.LoopCount() {
		return fmt.Errorf("%w: uv layer %q has %d entries for %d corners",
			ErrMalformedMesh, layer.Name, len(layer.Data), mesh.LoopCount())
	}
	return nil
}

// cornerUVs returns the active UV layer, or a synthesized projection when
// the mesh has none.
func cornerUVs(mesh *host.Mesh) []math.Vec2 {
	if layer := mesh.ActiveUVLayer(); layer != nil {
		return layer.Data
	}
	return boxProjectUVs(mesh)
}

func loopStarts(mesh *host.Mesh) []int {
	starts := make([]int, len(mesh.Polygons))
	n := 0
	for i, p := range mesh.Polygons {
		starts[i] = n
		n += len(p.Vertices)
	}
	return starts
}

func materialName(mat *host.Material) string {
	if mat == nil {
		return usd.DefaultMaterialName
	}
	return SanitizeIdentifier(mat.Name)
}

// geometry holds the per-object data shared by every record split from it.
type geometry struct {
	mesh      *host.Mesh
	uvs       []math.Vec2
	weights   [][]usd.Influence
	loopStart []int
}

// record builds a mesh record from the given faces. With subset set, only
// referenced vertices are kept, in ascending original order.
func (g geometry) record(name, material string, faces []int, subset bool) *usd.Mesh {
	remap := g.vertexMap(faces, subset)

	rec := &usd.Mesh{
		Name:              name,
		Material:          material,
		FaceVertexCounts:  make([]int, 0, len(faces)),
		FaceVertexIndices: []int{},
		Points:            make([]math.Vec3, len(remap.order)),
		Normals:           []math.Vec3{},
		NormalIndices:     []int{},
		UVs:               []math.Vec2{},
		UVIndices:         []int{},
	}
	for newIdx, oldIdx := range remap.order {
		rec.Points[newIdx] = g.mesh.Vertices[oldIdx].Co
	}

	normals := newValueIndex[math.Vec3]()
	uvs := newValueIndex[math.Vec2]()
	for _, f := range faces {
		poly := g.mesh.Polygons[f]
		rec.FaceVertexCounts = append(rec.FaceVertexCounts, len(poly.Vertices))
		for corner, v := range poly.Vertices {
			rec.FaceVertexIndices = append(rec.FaceVertexIndices, remap.index[v])

			n := poly.Normal
			if poly.Smooth {
				n = g.mesh.Vertices[v].Normal
			}
			rec.NormalIndices = append(rec.NormalIndices, normals.add(n))
			rec.UVIndices = append(rec.UVIndices, uvs.add(g.uvs[g.loopStart[f]+corner]))
		}
	}
	rec.Normals = normals.values
	rec.UVs = uvs.values
	rec.Extent = extent(rec.Points)

	if g.weights != nil {
		rec.Weights = make([][]usd.Influence, len(remap.order))
		for newIdx, oldIdx := range remap.order {
			rec.Weights[newIdx] = g.weights[oldIdx]
		}
	}
	return rec
}

type vertexRemap struct {
	order []int
	index map[int]int
}

func (g geometry) vertexMap(faces []int, subset bool) vertexRemap {
	r := vertexRemap{index: make(map[int]int)}
	if !subset {
		r.order = make([]int, len(g.mesh.Vertices))
		for i := range r.order {
			r.order[i] = i
			r.index[i] = i
		}
		return r
	}

	for _, f := range faces {
		for _, v := range g.mesh.Polygons[f].Vertices {
			if _, seen := r.index[v]; !seen {
				r.index[v] = 0
				r.order = append(r.order, v)
			}
		}
	}
	sort.Ints(r.order)
	for newIdx, oldIdx := range r.order {
		r.index[oldIdx] = newIdx
	}
	return r
}

func extent(points []math.Vec3) [2]math.Vec3 {
	if len(points) == 0 {
		return [2]math.Vec3{}
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return [2]math.Vec3{lo, hi}
}

// vertexWeights collects joint influences per vertex, or nil when the
// object has no vertex groups. Groups are matched to joints by bone name
// when the object is parented to an armature and by group index otherwise.
func vertexWeights(obj host.Object, mesh *host.Mesh) [][]usd.Influence {
	groups := obj.VertexGroups()
	if len(groups) == 0 {
		return nil
	}

	joint := func(g *host.VertexGroup) (int, bool) { return g.Index, true }
	if arm := parentArmature(obj); arm != nil {
		byName := make(map[string]int, len(arm.Bones))
		for i, b := range arm.Bones {
			byName[b.Name] = i
		}
		joint = func(g *host.VertexGroup) (int, bool) {
			i, ok := byName[g.Name]
			return i, ok
		}
	}

	weights := make([][]usd.Influence, len(mesh.Vertices))
	for v := range mesh.Vertices {
		var influences []usd.Influence
		for _, g := range groups {
			w, ok := g.Weight(v)
			if !ok || w <= weightEpsilon {
				continue
			}
			j, ok := joint(g)
			if !ok {
				continue
			}
			influences = append(influences, usd.Influence{Joint: j, Weight: w})
		}
		weights[v] = influences
	}
	return weights
}

// parentArmature returns the rig of obj's immediate parent when that parent
// is an armature.
func parentArmature(obj host.Object) *host.Armature {
	parent := obj.Parent()
	if parent == nil || parent.Type() != host.TypeArmature {
		return nil
	}
	return parent.Armature()
}

// skeletonPaths returns the skeleton and animation source prim paths for a
// mesh parented to an armature. The animation path is empty when the rig
// has no action.
func skeletonPaths(obj host.Object) (skeleton, animation string) {
	parent := obj.Parent()
	if parent == nil || parent.Type() != host.TypeArmature {
		return "", ""
	}
	root := "/" + SanitizeIdentifier(obj.Name())
	skeleton = root + "/" + SanitizeIdentifier(parent.Name())
	if arm := parent.Armature(); arm != nil && arm.Action != "" {
		animation = root + "/" + SanitizeIdentifier(arm.Action)
	}
	return skeleton, animation
}

// valueIndex deduplicates values by exact match, keeping first-seen order.
type valueIndex[T comparable] struct {
	values []T
	seen   map[T]int
}

func newValueIndex[T comparable]() *valueIndex[T] {
	return &valueIndex[T]{values: []T{}, seen: make(map[T]int)}
}

// add returns the index of v, appending it on first sight.
func (x *valueIndex[T]) add(v T) int {
	if i, ok := x.seen[v]; ok {
		return i
	}
	i := len(x.values)
	x.seen[v] = i
	x.values = append(x.values, v)
	return i
}
