package usd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Header is the first line of every document.
const Header = "#usda 1.0"

const indentUnit = "    "

// Encoder writes stages as usda text.
type Encoder struct {
	w   *bufio.Writer
	err error
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes the complete document for stage.
func (e *Encoder) Encode(stage *Stage) error {
	e.line(0, Header)
	if tc := stage.TimeCodes; tc != nil {
		e.line(0, "(")
		e.line(1, "endTimeCode = %d", tc.End)
		e.line(1, "startTimeCode = %d", tc.Start)
		e.line(1, "timeCodesPerSecond = %s", Float(tc.PerSecond))
		e.line(0, ")")
	}
	e.blank()

	for _, obj := range stage.Objects {
		e.object(obj, stage, 0)
	}

	if stage.BindMaterials && len(stage.Materials) > 0 {
		e.line(0, `def "Materials"`)
		e.line(0, "{")
		for _, mat := range stage.Materials {
			e.material(mat)
		}
		e.line(0, "}")
		e.blank()
	}

	if e.err != nil {
		return fmt.Errorf("write document: %w", e.err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush document: %w", err)
	}
	return nil
}

// Compose renders stage to a string.
func Compose(stage *Stage) (string, error) {
	var b strings.Builder
	if err := NewEncoder(&b).Encode(stage); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *Encoder) line(depth int, format string, args ...any) {
	if e.err != nil {
		return
	}
	if _, e.err = io.WriteString(e.w, strings.Repeat(indentUnit, depth)); e.err != nil {
		return
	}
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	_, e.err = io.WriteString(e.w, format+"\n")
}

func (e *Encoder) blank() {
	if e.err == nil {
		e.err = e.w.WriteByte('\n')
	}
}

func (e *Encoder) object(obj *Object, stage *Stage, depth int) {
	if obj.Skinned() {
		e.skinnedObject(obj, stage, depth)
		return
	}
	e.rigidObject(obj, stage, depth)
}

func (e *Encoder) rigidObject(obj *Object, stage *Stage, depth int) {
	e.line(depth, `def Xform "%s"`, obj.Name)
	e.line(depth, "{")
	if len(obj.TimeSamples) > 0 {
		e.line(depth+1, "matrix4d xformOp:transform:transforms.timeSamples = {")
		for _, s := range obj.TimeSamples {
			e.line(depth+2, "%d: %s,", s.Frame, Matrix(s.Matrix))
		}
		e.line(depth+1, "}")
		e.line(depth+1, `uniform token[] xformOpOrder = ["xformOp:transform:transforms"]`)
	} else {
		e.line(depth+1, "custom matrix4d xformOp:transform = %s", Matrix(obj.Matrix))
		e.line(depth+1, `uniform token[] xformOpOrder = ["xformOp:transform"]`)
	}
	e.blank()

	for _, child := range obj.Children {
		e.object(child, stage, depth+1)
	}
	for _, mesh := range obj.Meshes {
		e.mesh(mesh, stage, depth+1)
	}
	e.line(depth, "}")
	e.blank()
}

func (e *Encoder) skinnedObject(obj *Object, stage *Stage, depth int) {
	e.line(depth, `def SkelRoot "%s"`, obj.Name)
	e.line(depth, "{")
	for _, mesh := range obj.Meshes {
		e.mesh(mesh, stage, depth+1)
	}
	e.skeleton(obj.Skeleton, depth+1)
	if obj.Animation != nil {
		e.blank()
		e.animation(obj.Animation, depth+1)
	}
	e.line(depth, "}")
	e.blank()
}

func (e *Encoder) mesh(mesh *Mesh, stage *Stage, depth int) {
	d := depth + 1
	e.line(depth, `def Mesh "%s"`, mesh.Name)
	e.line(depth, "{")
	e.line(d, "float3[] extent = [%s]", Vec3s(mesh.Extent[:]))
	e.line(d, "int[] faceVertexCounts = [%s]", Indices(mesh.FaceVertexCounts))
	e.line(d, "int[] faceVertexIndices = [%s]", Indices(mesh.FaceVertexIndices))
	if stage.BindMaterials {
		e.line(d, "rel material:binding = </Materials/%s>", mesh.Material)
	}
	e.line(d, "point3f[] points = [%s]", Vec3s(mesh.Points))
	e.line(d, "normal3f[] primvars:normals = [%s] (", Vec3s(mesh.Normals))
	e.line(d+1, `interpolation = "vertex"`)
	e.line(d, ")")
	e.line(d, "int[] primvars:normals:indices = [%s]", Indices(mesh.NormalIndices))
	e.line(d, "texCoord2f[] primvars:%s = [%s] (", UVPrimvar, Vec2s(mesh.UVs))
	e.line(d+1, `interpolation = "faceVarying"`)
	e.line(d, ")")
	e.line(d, "int[] primvars:%s:indices = [%s]", UVPrimvar, Indices(mesh.UVIndices))
	if mesh.Weights != nil {
		e.line(d, "int[] primvars:skel:jointIndices = [%s] (", Indices(mesh.JointIndices()))
		e.line(d+1, "elementSize = %d", InfluencesPerVertex)
		e.line(d+1, `interpolation = "vertex"`)
		e.line(d, ")")
		e.line(d, "float[] primvars:skel:jointWeights = [%s] (", Tuple(mesh.JointWeights()...))
		e.line(d+1, "elementSize = %d", InfluencesPerVertex)
		e.line(d+1, `interpolation = "vertex"`)
		e.line(d, ")")
	}
	if mesh.AnimationPath != "" {
		e.line(d, "prepend rel skel:animationSource = <%s>", mesh.AnimationPath)
	}
	if mesh.SkeletonPath != "" {
		e.line(d, "prepend rel skel:skeleton = <%s>", mesh.SkeletonPath)
	}
	e.line(d, `uniform token subdivisionScheme = "none"`)
	e.line(depth, "}")
	e.blank()
}

func (e *Encoder) skeleton(skel *Skeleton, depth int) {
	e.line(depth, `def Skeleton "%s"`, skel.Name)
	e.line(depth, "{")
	e.line(depth+1, "uniform token[] joints = [%s]", Tokens(skel.Joints))
	e.line(depth+1, "uniform matrix4d[] bindTransforms = [%s]", Matrices(skel.BindTransforms))
	e.line(depth+1, "uniform matrix4d[] restTransforms = [%s]", Matrices(skel.RestTransforms))
	e.line(depth, "}")
}

func (e *Encoder) animation(anim *Animation, depth int) {
	d := depth + 1
	e.line(depth, `def SkelAnimation "%s"`, anim.Name)
	e.line(depth, "{")
	e.line(d, "uniform token[] joints = [%s]", Tokens(anim.Joints))

	e.line(d, "quatf[] rotations.timeSamples = {")
	for _, s := range anim.Rotations {
		e.line(d+1, "%d: [%s],", s.Frame, Quats(s.Values))
	}
	e.line(d, "}")

	e.line(d, "half3[] scales.timeSamples = {")
	for _, s := range anim.Scales {
		e.line(d+1, "%d: [%s],", s.Frame, Vec3s(s.Values))
	}
	e.line(d, "}")

	e.line(d, "float3[] translations.timeSamples = {")
	for _, s := range anim.Translations {
		e.line(d+1, "%d: [%s],", s.Frame, Vec3s(s.Values))
	}
	e.line(d, "}")
	e.line(depth, "}")
}

func (e *Encoder) material(mat *Material) {
	path := mat.Path()
	e.line(1, `def Material "%s"`, mat.Name)
	e.line(1, "{")
	e.line(2, `token inputs:frame:stPrimvarName = "%s"`, UVPrimvar)
	e.line(2, "token outputs:displacement.connect = <%s/pbr.outputs:displacement>", path)
	e.line(2, "token outputs:surface.connect = <%s/pbr.outputs:surface>", path)
	e.blank()

	e.surfaceShader(mat)
	e.primvarShader(mat)

	metallic := mat.Metallic
	roughness := mat.Roughness
	textures := []struct {
		name     string
		file     string
		fallback [4]float64
		rgb      bool
	}{
		{"color_map", mat.ColorMap, mat.Color, true},
		{"normal_map", mat.NormalMap, [4]float64{0, 0, 1, 1}, true},
		{"ao_map", mat.OcclusionMap, [4]float64{0, 0, 0, 1}, false},
		{"emissive_map", mat.EmissiveMap, mat.Emissive, true},
		{"metallic_map", mat.MetallicMap, [4]float64{metallic, metallic, metallic, 1}, false},
		{"roughness_map", mat.RoughnessMap, [4]float64{roughness, roughness, roughness, 1}, false},
	}
	for _, tex := range textures {
		if tex.file == "" {
			continue
		}
		e.textureShader(path, tex.name, tex.file, tex.fallback, tex.rgb)
	}
	e.line(1, "}")
	e.blank()
}

func (e *Encoder) surfaceShader(mat *Material) {
	path := mat.Path()
	e.line(2, `def Shader "pbr"`)
	e.line(2, "{")
	e.line(3, `uniform token info:id = "UsdPreviewSurface"`)
	e.line(3, "float inputs:clearcoat = %s", Float(mat.Clearcoat))
	e.line(3, "float inputs:clearcoatRoughness = %s", Float(mat.ClearcoatRoughness))
	if mat.ColorMap == "" {
		e.line(3, "color3f inputs:diffuseColor = (%s)", Tuple(mat.Color[:3]...))
	} else {
		e.line(3, "color3f inputs:diffuseColor.connect = <%s/color_map.outputs:rgb>", path)
	}
	if mat.EmissiveMap == "" {
		e.line(3, "color3f inputs:emissiveColor = (%s)", Tuple(mat.Emissive[:3]...))
	} else {
		e.line(3, "color3f inputs:emissiveColor.connect = <%s/emissive_map.outputs:rgb>", path)
	}
	e.line(3, "float inputs:displacement = %s", Float(mat.Displacement))
	e.line(3, "float inputs:ior = %s", Float(mat.IOR))
	if mat.MetallicMap == "" {
		e.line(3, "float inputs:metallic = %s", Float(mat.Metallic))
	} else {
		e.line(3, "float inputs:metallic.connect = <%s/metallic_map.outputs:r>", path)
	}
	if mat.NormalMap == "" {
		e.line(3, "normal3f inputs:normal = (0, 0, 1)")
	} else {
		e.line(3, "normal3f inputs:normal.connect = <%s/normal_map.outputs:rgb>", path)
	}
	if mat.OcclusionMap == "" {
		e.line(3, "float inputs:occlusion = 0")
	} else {
		e.line(3, "float inputs:occlusion.connect = <%s/ao_map.outputs:r>", path)
	}
	if mat.RoughnessMap == "" {
		e.line(3, "float inputs:roughness = %s", Float(mat.Roughness))
	} else {
		e.line(3, "float inputs:roughness.connect = <%s/roughness_map.outputs:r>", path)
	}
	e.line(3, "float inputs:opacity = %s", Float(mat.Opacity))
	e.line(3, "color3f inputs:specularColor = (%s)", Tuple(mat.Specular[:]...))
	workflow := 0
	if mat.SpecularWorkflow {
		workflow = 1
	}
	e.line(3, "int inputs:useSpecularWorkflow = %d", workflow)
	e.line(3, "token outputs:displacement")
	e.line(3, "token outputs:surface")
	e.line(2, "}")
	e.blank()
}

func (e *Encoder) primvarShader(mat *Material) {
	e.line(2, `def Shader "Primvar"`)
	e.line(2, "{")
	e.line(3, `uniform token info:id = "UsdPrimvarReader_float2"`)
	e.line(3, "float2 inputs:default = (0, 0)")
	e.line(3, "token inputs:varname.connect = <%s.inputs:frame:stPrimvarName>", mat.Path())
	e.line(3, "float2 outputs:result")
	e.line(2, "}")
	e.blank()
}

func (e *Encoder) textureShader(matPath, name, file string, fallback [4]float64, rgb bool) {
	e.line(2, `def Shader "%s"`, name)
	e.line(2, "{")
	e.line(3, `uniform token info:id = "UsdUVTexture"`)
	e.line(3, "float4 inputs:default = (%s)", Tuple(fallback[:]...))
	e.line(3, "asset inputs:file = @%s@", file)
	e.line(3, "float2 inputs:st.connect = <%s/Primvar.outputs:result>", matPath)
	e.line(3, `token inputs:wrapS = "repeat"`)
	e.line(3, `token inputs:wrapT = "repeat"`)
	if rgb {
		e.line(3, "float3 outputs:rgb")
	} else {
		e.line(3, "float outputs:r")
	}
	e.line(2, "}")
	e.blank()
}
