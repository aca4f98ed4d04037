// Package usd holds the scene records that make up a USD document and
// writes them out in the textual usda syntax.
package usd

import "github.com/Faultbox/usdz-export/pkg/math"

// DefaultMaterialName is used when a mesh has no material of its own.
const DefaultMaterialName = "DefaultMaterial"

// InfluencesPerVertex is the fixed joint influence arity written for
// skinned meshes. Extra influences are dropped, missing ones zero-filled.
const InfluencesPerVertex = 4

// UVPrimvar is the texture coordinate primvar every material reads.
const UVPrimvar = "Texture_uv"

// Stage is a complete document: the object forest plus its materials.
type Stage struct {
	Objects   []*Object
	Materials []*Material

	// BindMaterials writes material bindings on meshes and the Materials
	// scope.
	BindMaterials bool

	// TimeCodes is written to the layer header when set.
	TimeCodes *TimeCodes
}

// TimeCodes describes the animated frame range of a stage.
type TimeCodes struct {
	Start     int
	End       int
	PerSecond float64
}

// Object is a transform node. Objects carrying a Skeleton are written as
// SkelRoot prims, all others as Xform prims.
type Object struct {
	Name string

	// Matrix is the root-adjusted world matrix for roots and the local
	// matrix for parented objects.
	Matrix math.Mat4

	// Parent is the name of the parent object, empty for roots.
	Parent string

	Children  []*Object
	Meshes    []*Mesh
	Skeleton  *Skeleton
	Animation *Animation

	TimeSamples []MatrixSample
}

// Skinned reports whether the object is written as a skeleton root.
func (o *Object) Skinned() bool {
	return o.Skeleton != nil
}

// Walk visits the object and its descendants depth first.
func (o *Object) Walk(fn func(obj *Object, depth int)) {
	o.walk(fn, 0)
}

func (o *Object) walk(fn func(obj *Object, depth int), depth int) {
	fn(o, depth)
	for _, child := range o.Children {
		child.walk(fn, depth+1)
	}
}

// MatrixSample is a transform at one frame.
type MatrixSample struct {
	Frame  int
	Matrix math.Mat4
}

// Influence is a single joint weight on a vertex.
type Influence struct {
	Joint  int
	Weight float64
}

// Mesh is a polygon mesh prim.
type Mesh struct {
	Name     string
	Material string

	Extent            [2]math.Vec3
	FaceVertexCounts  []int
	FaceVertexIndices []int
	Points            []math.Vec3

	Normals       []math.Vec3
	NormalIndices []int

	UVs       []math.Vec2
	UVIndices []int

	// Weights holds per-vertex influences in discovery order; nil for
	// meshes without vertex groups.
	Weights [][]Influence

	SkeletonPath  string
	AnimationPath string
}

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int {
	return len(m.FaceVertexCounts)
}

// JointIndices flattens the influences into fixed-size groups.
func (m *Mesh) JointIndices() []int {
	out := make([]int, len(m.Weights)*InfluencesPerVertex)
	for v, influences := range m.Weights {
		for i, inf := range influences {
			if i == InfluencesPerVertex {
				break
			}
			out[v*InfluencesPerVertex+i] = inf.Joint
		}
	}
	return out
}

// JointWeights flattens the weights into fixed-size groups.
func (m *Mesh) JointWeights() []float64 {
	out := make([]float64, len(m.Weights)*InfluencesPerVertex)
	for v, influences := range m.Weights {
		for i, inf := range influences {
			if i == InfluencesPerVertex {
				break
			}
			out[v*InfluencesPerVertex+i] = inf.Weight
		}
	}
	return out
}

// Material is a UsdPreviewSurface material. Map fields hold texture file
// names relative to the document and are empty when the channel uses its
// scalar value.
type Material struct {
	Name string

	Color    [4]float64
	Emissive [4]float64
	Specular [3]float64

	Metallic           float64
	Roughness          float64
	Clearcoat          float64
	ClearcoatRoughness float64
	Opacity            float64
	IOR                float64
	Displacement       float64
	SpecularWorkflow   bool

	ColorMap     string
	EmissiveMap  string
	MetallicMap  string
	RoughnessMap string
	NormalMap    string
	OcclusionMap string
}

// NewMaterial returns a material with every channel at its default.
func NewMaterial(name string) *Material {
	return &Material{
		Name:     name,
		Color:    [4]float64{0, 0, 0, 1},
		Emissive: [4]float64{0, 0, 0, 1},
		Specular: [3]float64{1, 1, 1},
		Opacity:  1,
		IOR:      1.5,
	}
}

// DefaultMaterial returns the placeholder material.
func DefaultMaterial() *Material {
	return NewMaterial(DefaultMaterialName)
}

// Textures returns the non-empty map file names.
func (m *Material) Textures() []string {
	var files []string
	for _, f := range []string{m.ColorMap, m.NormalMap, m.OcclusionMap, m.EmissiveMap, m.MetallicMap, m.RoughnessMap} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// Path returns the absolute prim path of the material.
func (m *Material) Path() string {
	return "/Materials/" + m.Name
}

// Skeleton is a joint hierarchy. Bind and rest transforms are index
// aligned with Joints.
type Skeleton struct {
	Name           string
	Matrix         math.Mat4
	Joints         []string
	BindTransforms []math.Mat4
	RestTransforms []math.Mat4
}

// Animation is sampled joint animation. Each table holds one entry per
// frame, in frame order.
type Animation struct {
	Name         string
	Joints       []string
	Rotations    []QuatSample
	Scales       []VecSample
	Translations []VecSample
}

// QuatSample holds one rotation per joint at a frame.
type QuatSample struct {
	Frame  int
	Values []math.Quat
}

// VecSample holds one vector per joint at a frame.
type VecSample struct {
	Frame  int
	Values []math.Vec3
}
