// Package memhost is an in-memory host scene.
//
// Scenes are built in code or loaded from a YAML description (see Load).
// Object transforms and bone poses are keyframed and evaluated at the
// scene's current frame, so the exporter sees the same timeline behaviour
// it would in an interactive host.
package memhost

import (
	"errors"
	"fmt"
	"image"

	"github.com/Faultbox/usdz-export/internal/host"
	"github.com/Faultbox/usdz-export/pkg/math"
)

// Scene errors.
var (
	ErrDuplicateObject = errors.New("duplicate object name")
	ErrUnknownObject   = errors.New("object not in scene")
	ErrNoBakeTarget    = errors.New("no bake target assigned")
	ErrNotBakeable     = errors.New("object cannot be baked")
)

// Scene implements host.Scene.
type Scene struct {
	objects []*Object
	byName  map[string]*Object

	selection []*Object
	active    *Object

	frame      int
	start, end int
	fps        float64

	images      map[*Image]bool
	bakeTargets map[*Object]*Image
}

var _ host.Scene = (*Scene)(nil)

// NewScene returns an empty scene on frame 1 of a 1..250 timeline at 24 fps.
func NewScene() *Scene {
	return &Scene{
		byName:      make(map[string]*Object),
		frame:       1,
		start:       1,
		end:         250,
		fps:         24,
		images:      make(map[*Image]bool),
		bakeTargets: make(map[*Object]*Image),
	}
}

// AddObject creates an object. parent may be nil.
func (s *Scene) AddObject(name string, typ host.ObjectType, parent *Object) (*Object, error) {
	if _, ok := s.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateObject, name)
	}
	if parent != nil && s.byName[parent.name] != parent {
		return nil, fmt.Errorf("%w: parent %q of %q", ErrUnknownObject, parent.name, name)
	}
	obj := &Object{
		scene:     s,
		name:      name,
		typ:       typ,
		parent:    parent,
		Transform: IdentityTRS(),
	}
	s.objects = append(s.objects, obj)
	s.byName[name] = obj
	return obj, nil
}

// Object returns the named object, or nil.
func (s *Scene) Object(name string) *Object {
	return s.byName[name]
}

// Objects returns every object in creation order.
func (s *Scene) Objects() []*Object {
	return s.objects
}

// Select replaces the selection.
func (s *Scene) Select(objs ...*Object) {
	s.selection = append([]*Object(nil), objs...)
}

// SetActive sets the active object; nil clears it.
func (s *Scene) SetActive(obj *Object) {
	s.active = obj
}

// SetTimeline sets the frame range and rate.
func (s *Scene) SetTimeline(start, end int, fps float64) {
	s.start, s.end, s.fps = start, end, fps
}

// Selection implements host.Scene.
func (s *Scene) Selection() []host.Object {
	out := make([]host.Object, len(s.selection))
	for i, o := range s.selection {
		out[i] = o
	}
	return out
}

// Active implements host.Scene.
func (s *Scene) Active() host.Object {
	if s.active == nil {
		return nil
	}
	return s.active
}

// Frame implements host.Scene.
func (s *Scene) Frame() int { return s.frame }

// SetFrame implements host.Scene.
func (s *Scene) SetFrame(frame int) error {
	s.frame = frame
	return nil
}

// FrameRange implements host.Scene.
func (s *Scene) FrameRange() (int, int) { return s.start, s.end }

// FPS implements host.Scene.
func (s *Scene) FPS() float64 { return s.fps }

// AddImage registers an existing picture as a scene image.
func (s *Scene) AddImage(name string, img image.Image) *Image {
	im := &Image{name: name, data: img}
	s.images[im] = true
	return im
}

// NewImage implements host.Scene. The image starts fully transparent.
func (s *Scene) NewImage(name string, width, height int) (host.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image %q: invalid size %dx%d", name, width, height)
	}
	return s.AddImage(name, image.NewNRGBA(image.Rect(0, 0, width, height))), nil
}

// RemoveImage implements host.Scene.
func (s *Scene) RemoveImage(img host.Image) {
	im, ok := img.(*Image)
	if !ok {
		return
	}
	delete(s.images, im)
	for obj, target := range s.bakeTargets {
		if target == im {
			delete(s.bakeTargets, obj)
		}
	}
}

// ImageCount returns the number of live images.
func (s *Scene) ImageCount() int {
	return len(s.images)
}

// BakeTarget returns the image assigned to obj, or nil.
func (s *Scene) BakeTarget(obj *Object) *Image {
	return s.bakeTargets[obj]
}

// SetBakeTarget implements host.Scene.
func (s *Scene) SetBakeTarget(obj host.Object, img host.Image) error {
	o, err := s.own(obj)
	if err != nil {
		return err
	}
	if img == nil {
		delete(s.bakeTargets, o)
		return nil
	}
	im, ok := img.(*Image)
	if !ok || !s.images[im] {
		return fmt.Errorf("image %q is not a scene image", img.Name())
	}
	if _, ok := im.data.(*image.NRGBA); !ok {
		return fmt.Errorf("image %q is not writable", im.name)
	}
	s.bakeTargets[o] = im
	return nil
}

// BakeAO implements host.Scene.
func (s *Scene) BakeAO(obj host.Object, samples int) error {
	o, err := s.own(obj)
	if err != nil {
		return err
	}
	target := s.bakeTargets[o]
	if target == nil {
		return fmt.Errorf("%w: %s", ErrNoBakeTarget, o.name)
	}
	if o.Geometry == nil || o.Geometry.ActiveUVLayer() == nil {
		return fmt.Errorf("%w: %s has no uv layer", ErrNotBakeable, o.name)
	}
	if samples <= 0 {
		return fmt.Errorf("%w: %d samples", ErrNotBakeable, samples)
	}
	bakeAO(o.Geometry, target.data.(*image.NRGBA), samples)
	return nil
}

func (s *Scene) own(obj host.Object) (*Object, error) {
	o, ok := obj.(*Object)
	if !ok || o == nil || s.byName[o.name] != o {
		name := "<nil>"
		if obj != nil {
			name = obj.Name()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, name)
	}
	return o, nil
}

// Object implements host.Object. The exported fields hold the authored
// data; the interface methods evaluate it at the scene's current frame.
type Object struct {
	scene  *Scene
	name   string
	typ    host.ObjectType
	parent *Object

	Transform TRS
	Geometry  *host.Mesh
	Slots     []*host.Material
	Groups    []*host.VertexGroup
	Rig       *host.Armature
	// BonePoses is index aligned with Rig.Bones.
	BonePoses []TRS
}

var _ host.Object = (*Object)(nil)

// Name implements host.Object.
func (o *Object) Name() string { return o.name }

// Type implements host.Object.
func (o *Object) Type() host.ObjectType { return o.typ }

// Parent implements host.Object.
func (o *Object) Parent() host.Object {
	if o.parent == nil {
		return nil
	}
	return o.parent
}

// MatrixLocal implements host.Object.
func (o *Object) MatrixLocal() math.Mat4 {
	return o.Transform.Matrix(o.scene.frame)
}

// MatrixWorld implements host.Object.
func (o *Object) MatrixWorld() math.Mat4 {
	local := o.MatrixLocal()
	if o.parent == nil {
		return local
	}
	return o.parent.MatrixWorld().Mul(local)
}

// Mesh implements host.Object.
func (o *Object) Mesh() *host.Mesh {
	if o.typ != host.TypeMesh {
		return nil
	}
	return o.Geometry
}

// MaterialSlots implements host.Object.
func (o *Object) MaterialSlots() []*host.Material { return o.Slots }

// VertexGroups implements host.Object.
func (o *Object) VertexGroups() []*host.VertexGroup { return o.Groups }

// Armature implements host.Object.
func (o *Object) Armature() *host.Armature {
	if o.typ != host.TypeArmature {
		return nil
	}
	return o.Rig
}

// Pose implements host.Object. Bones without pose data are at rest.
func (o *Object) Pose() []host.PoseBone {
	if o.Armature() == nil {
		return nil
	}
	pose := make([]host.PoseBone, len(o.Rig.Bones))
	for i := range pose {
		trs := IdentityTRS()
		if i < len(o.BonePoses) {
			trs = o.BonePoses[i]
		}
		loc, rot, scale := trs.Eval(o.scene.frame)
		pose[i] = host.PoseBone{Location: loc, Rotation: rot, Scale: scale}
	}
	return pose
}

// Image implements host.Image.
type Image struct {
	name string
	data image.Image
}

// Name implements host.Image.
func (im *Image) Name() string { return im.name }

// Data implements host.Image.
func (im *Image) Data() image.Image { return im.data }
