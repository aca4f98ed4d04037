// Package host defines the scene access surface the exporter reads from.
//
// A host owns the live scene: its objects, the timeline cursor and image
// resources. Everything time dependent (matrices, poses) is evaluated at the
// host's current frame.
package host

import (
	"image"

	"github.com/Faultbox/usdz-export/pkg/math"
)

// ObjectType tags what kind of data an object carries.
type ObjectType string

// Object types understood by the exporter. Other types are ignored.
const (
	TypeMesh     ObjectType = "MESH"
	TypeArmature ObjectType = "ARMATURE"
	TypeEmpty    ObjectType = "EMPTY"
)

// Scene is the host's scene and timeline.
type Scene interface {
	// Selection returns the selected objects.
	Selection() []Object
	// Active returns the active object, or nil.
	Active() Object

	Frame() int
	SetFrame(frame int) error
	FrameRange() (start, end int)
	FPS() float64

	// NewImage allocates a writable image resource.
	NewImage(name string, width, height int) (Image, error)
	// RemoveImage frees an image created with NewImage.
	RemoveImage(img Image)
	// SetBakeTarget assigns img as the UV image baked into for obj.
	// A nil image detaches the current target.
	SetBakeTarget(obj Object, img Image) error
	// BakeAO renders ambient occlusion for obj into its bake target.
	BakeAO(obj Object, samples int) error
}

// Object is a node in the host scene.
type Object interface {
	Name() string
	Type() ObjectType
	// Parent returns the parent object, or nil for roots.
	Parent() Object

	MatrixWorld() math.Mat4
	MatrixLocal() math.Mat4

	// Mesh returns the geometry of mesh objects, nil otherwise.
	Mesh() *Mesh
	// MaterialSlots returns the material slots; empty slots are nil.
	MaterialSlots() []*Material
	VertexGroups() []*VertexGroup

	// Armature returns the rig of armature objects, nil otherwise.
	Armature() *Armature
	// Pose returns the current pose of an armature, index aligned with
	// Armature().Bones.
	Pose() []PoseBone
}

// Image is a host image resource.
type Image interface {
	Name() string
	Data() image.Image
}

// Vertex is a mesh vertex.
type Vertex struct {
	Co     math.Vec3
	Normal math.Vec3
}

// Polygon is a mesh face. Vertices index Mesh.Vertices.
type Polygon struct {
	Vertices []int
	Material int
	Smooth   bool
	Normal   math.Vec3
}

// UVLayer holds one coordinate per face corner, in face order.
type UVLayer struct {
	Name string
	Data []math.Vec2
}

// Mesh is polygon geometry.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Polygons []Polygon
	UVLayers []UVLayer
	// ActiveUV indexes UVLayers.
	ActiveUV int
}

// LoopCount returns the number of face corners.
func (m *Mesh) LoopCount() int {
	n := 0
	for _, p := range m.Polygons {
		n += len(p.Vertices)
	}
	return n
}

// ActiveUVLayer returns the active UV layer, or nil when the mesh has none.
func (m *Mesh) ActiveUVLayer() *UVLayer {
	if m.ActiveUV < 0 || m.ActiveUV >= len(m.UVLayers) {
		return nil
	}
	return &m.UVLayers[m.ActiveUV]
}

// VertexGroup maps vertex indices to weights.
type VertexGroup struct {
	Index   int
	Name    string
	Weights map[int]float64
}

// Weight returns the weight of vertex v and whether v is in the group.
func (g *VertexGroup) Weight(v int) (float64, bool) {
	w, ok := g.Weights[v]
	return w, ok
}

// Bone is a rest pose bone. Bones are ordered parents first.
type Bone struct {
	Name string
	// Parent indexes Armature.Bones, -1 for root bones.
	Parent int
	Length float64
	// MatrixLocal is the bone's rest matrix in armature space.
	MatrixLocal math.Mat4
}

// Armature is a skeleton rig.
type Armature struct {
	Bones []Bone
	// Action names the animation driving the rig, empty when none.
	Action string
}

// PoseBone is the animated state of a bone relative to its rest pose.
type PoseBone struct {
	Location math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
}
