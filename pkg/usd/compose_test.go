package usd

import (
	"strings"
	"testing"

	"github.com/Faultbox/usdz-export/pkg/math"
)

func cubeMesh(name string) *Mesh {
	return &Mesh{
		Name:             name,
		Material:         DefaultMaterialName,
		Extent:           [2]math.Vec3{{X: -1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: 1}},
		FaceVertexCounts: []int{4, 4, 4, 4, 4, 4},
		FaceVertexIndices: []int{
			0, 1, 3, 2, 2, 3, 7, 6, 6, 7, 5, 4,
			4, 5, 1, 0, 2, 6, 4, 0, 7, 3, 1, 5,
		},
		Points: []math.Vec3{
			{X: -1, Y: -1, Z: -1}, {X: -1, Y: -1, Z: 1}, {X: -1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: 1},
			{X: 1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: 1},
		},
		Normals:       []math.Vec3{{X: -1}},
		NormalIndices: make([]int, 24),
		UVs:           []math.Vec2{{}},
		UVIndices:     make([]int, 24),
	}
}

func TestComposeStaticCube(t *testing.T) {
	stage := &Stage{
		Objects: []*Object{{
			Name:   "Cube",
			Matrix: math.Identity(),
			Meshes: []*Mesh{cubeMesh("Cube")},
		}},
		Materials: []*Material{DefaultMaterial()},
	}

	doc, err := Compose(stage)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if !strings.HasPrefix(doc, Header+"\n") {
		t.Errorf("document should start with %q", Header)
	}
	counts := []struct {
		needle string
		want   int
	}{
		{`def Xform "Cube"`, 1},
		{`def Mesh "Cube"`, 1},
		{"custom matrix4d xformOp:transform =", 1},
		{`xformOpOrder = ["xformOp:transform"]`, 1},
		{"timeSamples", 0},
		{"material:binding", 0},
		{`def "Materials"`, 0},
		{"startTimeCode", 0},
		{"SkelRoot", 0},
	}
	for _, c := range counts {
		if got := strings.Count(doc, c.needle); got != c.want {
			t.Errorf("count(%q) = %d, want %d", c.needle, got, c.want)
		}
	}
}

func TestComposeMaterials(t *testing.T) {
	mat := NewMaterial("Red")
	mat.Color = [4]float64{1, 0, 0, 1}
	mat.ColorMap = "Red_color.png"
	mat.OcclusionMap = "Red_ao.png"

	stage := &Stage{
		Objects: []*Object{{
			Name:   "Cube",
			Matrix: math.Identity(),
			Meshes: []*Mesh{func() *Mesh { m := cubeMesh("Cube"); m.Material = "Red"; return m }()},
		}},
		Materials:     []*Material{mat},
		BindMaterials: true,
	}

	doc, err := Compose(stage)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	wants := []string{
		"rel material:binding = </Materials/Red>",
		`def "Materials"`,
		`def Material "Red"`,
		`token inputs:frame:stPrimvarName = "Texture_uv"`,
		"color3f inputs:diffuseColor.connect = </Materials/Red/color_map.outputs:rgb>",
		"float inputs:occlusion.connect = </Materials/Red/ao_map.outputs:r>",
		"float inputs:metallic = 0",
		"float inputs:ior = 1.5",
		`def Shader "color_map"`,
		"float4 inputs:default = (1, 0, 0, 1)",
		"asset inputs:file = @Red_color.png@",
		`def Shader "ao_map"`,
		"token inputs:varname.connect = </Materials/Red.inputs:frame:stPrimvarName>",
	}
	for _, want := range wants {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(doc, `def Shader "normal_map"`) {
		t.Error("normal_map shader should be omitted without a normal map")
	}
	// The forest comes before the material scope.
	if strings.Index(doc, `def Xform "Cube"`) > strings.Index(doc, `def "Materials"`) {
		t.Error("objects should precede materials")
	}
}

func TestComposeAnimatedAndSkinned(t *testing.T) {
	q := math.QuatIdentity()
	joints := []string{"root", "root/tip"}
	mesh := cubeMesh("Body")
	mesh.Weights = make([][]Influence, len(mesh.Points))
	for i := range mesh.Weights {
		mesh.Weights[i] = []Influence{{Joint: 0, Weight: 0.75}, {Joint: 1, Weight: 0.25}}
	}
	mesh.SkeletonPath = "/Body/Armature"
	mesh.AnimationPath = "/Body/Walk"

	stage := &Stage{
		TimeCodes: &TimeCodes{Start: 1, End: 2, PerSecond: 24},
		Objects: []*Object{
			{
				Name:   "Mover",
				Matrix: math.Identity(),
				TimeSamples: []MatrixSample{
					{Frame: 1, Matrix: math.Identity()},
					{Frame: 2, Matrix: math.Translate(math.Vec3{X: 1})},
				},
			},
			{
				Name:   "Body",
				Meshes: []*Mesh{mesh},
				Skeleton: &Skeleton{
					Name:           "Armature",
					Joints:         joints,
					BindTransforms: []math.Mat4{math.Identity(), math.Identity()},
					RestTransforms: []math.Mat4{math.Identity(), math.Identity()},
				},
				Animation: &Animation{
					Name:   "Walk",
					Joints: joints,
					Rotations: []QuatSample{
						{Frame: 1, Values: []math.Quat{q, q}},
						{Frame: 2, Values: []math.Quat{q, q}},
					},
					Scales: []VecSample{
						{Frame: 1, Values: []math.Vec3{{X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}}},
						{Frame: 2, Values: []math.Vec3{{X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}}},
					},
					Translations: []VecSample{
						{Frame: 1, Values: []math.Vec3{{}, {Y: 1}}},
						{Frame: 2, Values: []math.Vec3{{}, {Y: 1}}},
					},
				},
			},
		},
	}

	doc, err := Compose(stage)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	wants := []string{
		"(\n    endTimeCode = 2\n    startTimeCode = 1\n    timeCodesPerSecond = 24\n)\n",
		"matrix4d xformOp:transform:transforms.timeSamples = {",
		"2: ((1, 0, 0, 0), (0, 1, 0, 0), (0, 0, 1, 0), (1, 0, 0, 1)),",
		`uniform token[] xformOpOrder = ["xformOp:transform:transforms"]`,
		`def SkelRoot "Body"`,
		`def Skeleton "Armature"`,
		`uniform token[] joints = ["root", "root/tip"]`,
		"int[] primvars:skel:jointIndices = [0, 1, 0, 0,",
		"float[] primvars:skel:jointWeights = [0.75, 0.25, 0, 0,",
		"elementSize = 4",
		"prepend rel skel:animationSource = </Body/Walk>",
		"prepend rel skel:skeleton = </Body/Armature>",
		`def SkelAnimation "Walk"`,
		"1: [(1, 0, 0, 0), (1, 0, 0, 0)],",
		"half3[] scales.timeSamples = {",
		"2: [(0, 0, 0), (0, 1, 0)],",
	}
	for _, want := range wants {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(doc, `def Xform "Body"`) {
		t.Error("skinned object must not be written as Xform")
	}
}

func TestMeshJointArraysTruncateAndPad(t *testing.T) {
	m := &Mesh{Weights: [][]Influence{
		{{0, 0.2}, {1, 0.2}, {2, 0.2}, {3, 0.2}, {4, 0.2}},
		{},
	}}
	idx := m.JointIndices()
	w := m.JointWeights()
	if len(idx) != 8 || len(w) != 8 {
		t.Fatalf("got %d indices / %d weights, want 8", len(idx), len(w))
	}
	if idx[3] != 3 || idx[4] != 0 || w[7] != 0 {
		t.Errorf("unexpected layout: %v %v", idx, w)
	}
}
