package memhost

import (
	"errors"
	"fmt"
	"image/color"
	"maps"
	gomath "math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/usdz-export/internal/host"
	"github.com/Faultbox/usdz-export/internal/texture"
	"github.com/Faultbox/usdz-export/pkg/math"
)

// Scene description errors.
var (
	ErrUnknownReference = errors.New("unknown reference")
	ErrInvalidScene     = errors.New("invalid scene description")
)

// sceneFile is the YAML scene description.
type sceneFile struct {
	Frames    framesDesc     `yaml:"frames"`
	Active    string         `yaml:"active"`
	Selection []string       `yaml:"selection"`
	Images    []imageDesc    `yaml:"images"`
	Materials []materialDesc `yaml:"materials"`
	Objects   []objectDesc   `yaml:"objects"`
}

type framesDesc struct {
	Start   int     `yaml:"start"`
	End     int     `yaml:"end"`
	FPS     float64 `yaml:"fps"`
	Current int     `yaml:"current"`
}

type imageDesc struct {
	Name  string    `yaml:"name"`
	File  string    `yaml:"file"`  // Relative to the scene file
	Color []float64 `yaml:"color"` // Solid RGBA fill when File is empty
	Size  []int     `yaml:"size"`  // Width, height of a solid image
}

type materialDesc struct {
	Name     string            `yaml:"name"`
	Shader   string            `yaml:"shader"` // principled, diffuse or any other node kind
	Inputs   map[string]values `yaml:"inputs"`
	Textures map[string]string `yaml:"textures"` // Shader input -> image name
	Legacy   *legacyDesc       `yaml:"legacy"`
}

type legacyDesc struct {
	Diffuse  []float64         `yaml:"diffuse"`
	Specular []float64         `yaml:"specular"`
	Emit     float64           `yaml:"emit"`
	Textures []textureSlotDesc `yaml:"textures"`
}

type textureSlotDesc struct {
	Image  string `yaml:"image"`
	Color  bool   `yaml:"color"`
	Normal bool   `yaml:"normal"`
}

type transformDesc struct {
	Location []float64 `yaml:"location"`
	Rotation []float64 `yaml:"rotation"` // Quaternion w, x, y, z
	Euler    []float64 `yaml:"euler"`    // XYZ degrees, used when Rotation is empty
	Scale    []float64 `yaml:"scale"`
}

type keyDesc struct {
	Frame     int           `yaml:"frame"`
	Transform transformDesc `yaml:",inline"`
}

type objectDesc struct {
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type"`
	Parent    string         `yaml:"parent"`
	Transform transformDesc  `yaml:",inline"`
	Keys      []keyDesc      `yaml:"keys"`
	Mesh      *meshDesc      `yaml:"mesh"`
	Materials []string       `yaml:"materials"`
	Groups    []groupDesc    `yaml:"groups"`
	Armature  *armatureDesc  `yaml:"armature"`
	Pose      []bonePoseDesc `yaml:"pose"`
}

type meshDesc struct {
	Name          string      `yaml:"name"`
	Primitive     string      `yaml:"primitive"` // cube or plane
	Size          float64     `yaml:"size"`
	Vertices      [][]float64 `yaml:"vertices"`
	Faces         [][]int     `yaml:"faces"`
	FaceMaterials []int       `yaml:"face_materials"`
	Smooth        bool        `yaml:"smooth"`
	UVs           [][]float64 `yaml:"uvs"` // One per face corner
}

type groupDesc struct {
	Name    string          `yaml:"name"`
	Weights map[int]float64 `yaml:"weights"`
}

type armatureDesc struct {
	Action string     `yaml:"action"`
	Bones  []boneDesc `yaml:"bones"`
}

type boneDesc struct {
	Name   string    `yaml:"name"`
	Parent string    `yaml:"parent"`
	Head   []float64 `yaml:"head"`
	Tail   []float64 `yaml:"tail"`
}

type bonePoseDesc struct {
	Bone      string        `yaml:"bone"`
	Transform transformDesc `yaml:",inline"`
	Keys      []keyDesc     `yaml:"keys"`
}

// values is a socket default written either as a scalar or a list.
type values []float64

func (v *values) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = values{f}
		return nil
	}
	var list []float64
	if err := node.Decode(&list); err != nil {
		return err
	}
	*v = list
	return nil
}

// LoadFile reads a scene description. Image files are resolved relative to
// the description's directory.
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	scene, err := Load(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scene, nil
}

// Load builds a scene from a YAML description.
func Load(data []byte, baseDir string) (*Scene, error) {
	var desc sceneFile
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	b := &builder{
		scene:     NewScene(),
		baseDir:   baseDir,
		images:    make(map[string]*Image),
		materials: make(map[string]*host.Material),
	}
	if err := b.build(&desc); err != nil {
		return nil, err
	}
	return b.scene, nil
}

type builder struct {
	scene     *Scene
	baseDir   string
	images    map[string]*Image
	materials map[string]*host.Material
}

func (b *builder) build(desc *sceneFile) error {
	f := desc.Frames
	if f.FPS == 0 {
		f.FPS = 24
	}
	if f.Start == 0 && f.End == 0 {
		f.Start, f.End = 1, 250
	}
	b.scene.SetTimeline(f.Start, f.End, f.FPS)
	if f.Current != 0 {
		b.scene.frame = f.Current
	} else {
		b.scene.frame = f.Start
	}

	for _, d := range desc.Images {
		if err := b.image(d); err != nil {
			return err
		}
	}
	for _, d := range desc.Materials {
		if err := b.material(d); err != nil {
			return err
		}
	}

	// Objects may name parents declared later, so create them in parent
	// order.
	pending := desc.Objects
	for len(pending) > 0 {
		var next []objectDesc
		for _, d := range pending {
			if d.Parent != "" && b.scene.Object(d.Parent) == nil {
				next = append(next, d)
				continue
			}
			if err := b.object(d); err != nil {
				return err
			}
		}
		if len(next) == len(pending) {
			return fmt.Errorf("%w: parent %q of object %q", ErrUnknownReference, next[0].Parent, next[0].Name)
		}
		pending = next
	}

	for _, name := range desc.Selection {
		obj := b.scene.Object(name)
		if obj == nil {
			return fmt.Errorf("%w: selected object %q", ErrUnknownReference, name)
		}
		b.scene.selection = append(b.scene.selection, obj)
	}
	if desc.Active != "" {
		obj := b.scene.Object(desc.Active)
		if obj == nil {
			return fmt.Errorf("%w: active object %q", ErrUnknownReference, desc.Active)
		}
		b.scene.active = obj
	}
	return nil
}

func (b *builder) image(d imageDesc) error {
	if d.Name == "" {
		return fmt.Errorf("%w: image without name", ErrInvalidScene)
	}
	if d.File != "" {
		path := d.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.baseDir, path)
		}
		img, err := texture.Load(path)
		if err != nil {
			return fmt.Errorf("image %q: %w", d.Name, err)
		}
		b.images[d.Name] = b.scene.AddImage(d.Name, img)
		return nil
	}

	w, h := 1, 1
	if len(d.Size) == 2 {
		w, h = d.Size[0], d.Size[1]
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: image %q size %v", ErrInvalidScene, d.Name, d.Size)
	}
	c := fill(d.Color, []float64{1, 1, 1, 1})
	b.images[d.Name] = b.scene.AddImage(d.Name, texture.Solid(w, h, color.NRGBA{
		R: unit8(c[0]), G: unit8(c[1]), B: unit8(c[2]), A: unit8(c[3]),
	}))
	return nil
}

func (b *builder) lookupImage(name string) (*Image, error) {
	img, ok := b.images[name]
	if !ok {
		return nil, fmt.Errorf("%w: image %q", ErrUnknownReference, name)
	}
	return img, nil
}

func (b *builder) material(d materialDesc) error {
	mat := &host.Material{Name: d.Name}

	if d.Legacy != nil {
		diffuse := fill(d.Legacy.Diffuse, []float64{0.8, 0.8, 0.8})
		specular := fill(d.Legacy.Specular, []float64{1, 1, 1})
		mat.DiffuseColor = [3]float64{diffuse[0], diffuse[1], diffuse[2]}
		mat.SpecularColor = [3]float64{specular[0], specular[1], specular[2]}
		mat.Emit = d.Legacy.Emit
		for _, ts := range d.Legacy.Textures {
			img, err := b.lookupImage(ts.Image)
			if err != nil {
				return fmt.Errorf("material %q: %w", d.Name, err)
			}
			mat.TextureSlots = append(mat.TextureSlots, &host.TextureSlot{
				Image: img, UseColorDiffuse: ts.Color, UseNormal: ts.Normal,
			})
		}
		b.materials[d.Name] = mat
		return nil
	}

	mat.UseNodes = true
	output := &host.Node{Name: "Material Output", Kind: host.NodeOutputMaterial}
	surface := &host.Socket{Name: "Surface"}
	output.Inputs = append(output.Inputs, surface)
	mat.Nodes = append(mat.Nodes, output)

	if d.Shader != "" {
		shader := &host.Node{Name: d.Shader, Kind: shaderKind(d.Shader)}
		for _, name := range slices.Sorted(maps.Keys(d.Inputs)) {
			shader.Inputs = append(shader.Inputs, &host.Socket{Name: name, Default: d.Inputs[name]})
		}
		for _, input := range slices.Sorted(maps.Keys(d.Textures)) {
			imageName := d.Textures[input]
			img, err := b.lookupImage(imageName)
			if err != nil {
				return fmt.Errorf("material %q: %w", d.Name, err)
			}
			tex := &host.Node{Name: imageName, Kind: host.NodeTexImage, Image: img}
			mat.Nodes = append(mat.Nodes, tex)
			s := shader.Input(input)
			if s == nil {
				s = &host.Socket{Name: input}
				shader.Inputs = append(shader.Inputs, s)
			}
			s.Links = append(s.Links, tex)
		}
		mat.Nodes = append(mat.Nodes, shader)
		surface.Links = []*host.Node{shader}
	}
	b.materials[d.Name] = mat
	return nil
}

func shaderKind(s string) host.NodeKind {
	switch strings.ToLower(s) {
	case "principled":
		return host.NodePrincipled
	case "diffuse":
		return host.NodeDiffuse
	}
	return host.NodeKind(strings.ToUpper(s))
}

func (b *builder) object(d objectDesc) error {
	typ := host.ObjectType(strings.ToUpper(d.Type))
	switch {
	case typ == "" && d.Mesh != nil:
		typ = host.TypeMesh
	case typ == "" && d.Armature != nil:
		typ = host.TypeArmature
	case typ == "":
		typ = host.TypeEmpty
	}

	obj, err := b.scene.AddObject(d.Name, typ, b.scene.Object(d.Parent))
	if err != nil {
		return err
	}
	if obj.Transform, err = trs(d.Transform, d.Keys); err != nil {
		return fmt.Errorf("object %q: %w", d.Name, err)
	}

	if d.Mesh != nil {
		if obj.Geometry, err = mesh(d.Name, d.Mesh); err != nil {
			return fmt.Errorf("object %q: %w", d.Name, err)
		}
	}
	for _, name := range d.Materials {
		mat, ok := b.materials[name]
		if !ok {
			return fmt.Errorf("object %q: %w: material %q", d.Name, ErrUnknownReference, name)
		}
		obj.Slots = append(obj.Slots, mat)
	}
	for i, g := range d.Groups {
		obj.Groups = append(obj.Groups, &host.VertexGroup{Index: i, Name: g.Name, Weights: g.Weights})
	}

	if d.Armature != nil {
		if obj.Rig, err = armature(d.Armature); err != nil {
			return fmt.Errorf("object %q: %w", d.Name, err)
		}
		obj.BonePoses = make([]TRS, len(obj.Rig.Bones))
		for i := range obj.BonePoses {
			obj.BonePoses[i] = IdentityTRS()
		}
		for _, p := range d.Pose {
			i := boneIndex(obj.Rig, p.Bone)
			if i < 0 {
				return fmt.Errorf("object %q: %w: bone %q", d.Name, ErrUnknownReference, p.Bone)
			}
			if obj.BonePoses[i], err = trs(p.Transform, p.Keys); err != nil {
				return fmt.Errorf("object %q bone %q: %w", d.Name, p.Bone, err)
			}
		}
	}
	return nil
}

func mesh(objectName string, d *meshDesc) (*host.Mesh, error) {
	name := d.Name
	if name == "" {
		name = objectName
	}
	size := d.Size
	if size == 0 {
		size = 2
	}

	var m *host.Mesh
	switch strings.ToLower(d.Primitive) {
	case "cube":
		m = Cube(name, size)
	case "plane":
		m = Plane(name, size)
	case "":
		m = &host.Mesh{Name: name}
		for _, v := range d.Vertices {
			co, err := vec3(v)
			if err != nil {
				return nil, err
			}
			m.Vertices = append(m.Vertices, host.Vertex{Co: co})
		}
		for i, f := range d.Faces {
			for _, vi := range f {
				if vi < 0 || vi >= len(m.Vertices) {
					return nil, fmt.Errorf("%w: face %d vertex %d of %d", ErrInvalidScene, i, vi, len(m.Vertices))
				}
			}
			m.Polygons = append(m.Polygons, host.Polygon{Vertices: f})
		}
	default:
		return nil, fmt.Errorf("%w: primitive %q", ErrInvalidScene, d.Primitive)
	}

	if len(d.FaceMaterials) > 0 {
		if len(d.FaceMaterials) != len(m.Polygons) {
			return nil, fmt.Errorf("%w: %d face materials for %d faces", ErrInvalidScene, len(d.FaceMaterials), len(m.Polygons))
		}
		for i, slot := range d.FaceMaterials {
			m.Polygons[i].Material = slot
		}
	}
	for i := range m.Polygons {
		m.Polygons[i].Smooth = d.Smooth
	}

	if len(d.UVs) > 0 {
		if len(d.UVs) != m.LoopCount() {
			return nil, fmt.Errorf("%w: %d uvs for %d face corners", ErrInvalidScene, len(d.UVs), m.LoopCount())
		}
		layer := host.UVLayer{Name: "UVMap", Data: make([]math.Vec2, len(d.UVs))}
		for i, uv := range d.UVs {
			if len(uv) != 2 {
				return nil, fmt.Errorf("%w: uv %d has %d components", ErrInvalidScene, i, len(uv))
			}
			layer.Data[i] = math.Vec2{X: uv[0], Y: uv[1]}
		}
		m.UVLayers = []host.UVLayer{layer}
		m.ActiveUV = 0
	}

	m.RecalcNormals()
	return m, nil
}

func armature(d *armatureDesc) (*host.Armature, error) {
	arm := &host.Armature{Action: d.Action}
	index := make(map[string]int)
	for _, bd := range d.Bones {
		if _, dup := index[bd.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate bone %q", ErrInvalidScene, bd.Name)
		}
		parent := -1
		if bd.Parent != "" {
			p, ok := index[bd.Parent]
			if !ok {
				return nil, fmt.Errorf("%w: parent %q of bone %q must be declared first", ErrUnknownReference, bd.Parent, bd.Name)
			}
			parent = p
		}
		head, err := vecOr(bd.Head, math.Vec3{})
		if err != nil {
			return nil, err
		}
		tail, err := vecOr(bd.Tail, head.Add(math.Vec3{Y: 1}))
		if err != nil {
			return nil, err
		}
		dir := tail.Sub(head)
		rest := math.Translate(head).Mul(math.QuatBetween(math.Vec3{Y: 1}, dir).ToMat4())

		index[bd.Name] = len(arm.Bones)
		arm.Bones = append(arm.Bones, host.Bone{
			Name:        bd.Name,
			Parent:      parent,
			Length:      dir.Length(),
			MatrixLocal: rest,
		})
	}
	return arm, nil
}

func boneIndex(arm *host.Armature, name string) int {
	for i, b := range arm.Bones {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// trs converts a static transform plus keys into tracks. A key only
// contributes to the channels it sets.
func trs(static transformDesc, keys []keyDesc) (TRS, error) {
	t := IdentityTRS()
	var err error
	if t.Location, t.Rotation, t.Scale, err = channels(static, t); err != nil {
		return t, err
	}
	for _, k := range keys {
		loc, rot, scale, err := channels(k.Transform, t)
		if err != nil {
			return t, fmt.Errorf("key at frame %d: %w", k.Frame, err)
		}
		if k.Transform.Location != nil {
			t.LocationKeys = append(t.LocationKeys, Key[math.Vec3]{Frame: k.Frame, Value: loc})
		}
		if k.Transform.Rotation != nil || k.Transform.Euler != nil {
			t.RotationKeys = append(t.RotationKeys, Key[math.Quat]{Frame: k.Frame, Value: rot})
		}
		if k.Transform.Scale != nil {
			t.ScaleKeys = append(t.ScaleKeys, Key[math.Vec3]{Frame: k.Frame, Value: scale})
		}
	}
	sortKeys(t.LocationKeys)
	sortKeys(t.RotationKeys)
	sortKeys(t.ScaleKeys)
	return t, nil
}

func channels(d transformDesc, base TRS) (math.Vec3, math.Quat, math.Vec3, error) {
	loc, err := vecOr(d.Location, base.Location)
	if err != nil {
		return loc, base.Rotation, base.Scale, err
	}
	scale, err := vecOr(d.Scale, base.Scale)
	if err != nil {
		return loc, base.Rotation, scale, err
	}

	rot := base.Rotation
	switch {
	case d.Rotation != nil:
		if len(d.Rotation) != 4 {
			return loc, rot, scale, fmt.Errorf("%w: rotation needs 4 components, got %d", ErrInvalidScene, len(d.Rotation))
		}
		rot = math.Quat{W: d.Rotation[0], X: d.Rotation[1], Y: d.Rotation[2], Z: d.Rotation[3]}.Normalize()
	case d.Euler != nil:
		e, err := vec3(d.Euler)
		if err != nil {
			return loc, rot, scale, err
		}
		rad := gomath.Pi / 180
		rot = math.QuatFromEuler(e.X*rad, e.Y*rad, e.Z*rad)
	}
	return loc, rot, scale, nil
}

func vec3(v []float64) (math.Vec3, error) {
	if len(v) != 3 {
		return math.Vec3{}, fmt.Errorf("%w: expected 3 components, got %d", ErrInvalidScene, len(v))
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

func vecOr(v []float64, fallback math.Vec3) (math.Vec3, error) {
	if v == nil {
		return fallback, nil
	}
	return vec3(v)
}

// fill returns v with missing trailing components taken from defaults.
func fill(v, defaults []float64) []float64 {
	out := append([]float64(nil), defaults...)
	copy(out, v)
	return out
}

func unit8(f float64) uint8 {
	return uint8(gomath.Round(gomath.Max(0, gomath.Min(1, f)) * 255))
}
