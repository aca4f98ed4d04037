package export

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/Faultbox/usdz-export/internal/host/memhost"
	"github.com/Faultbox/usdz-export/internal/usdz"
	"github.com/Faultbox/usdz-export/pkg/usd"
)

// recordingArchiver captures the request and checks every input exists
// while the archiver runs.
type recordingArchiver struct {
	t   *testing.T
	req usdz.Request
	err error
}

func (a *recordingArchiver) Archive(_ context.Context, req usdz.Request) error {
	a.req = req
	for _, path := range append([]string{req.Document}, req.Assets...) {
		if _, err := os.Stat(path); err != nil {
			a.t.Errorf("archiver input missing: %v", err)
		}
	}
	return a.err
}

func TestExportSkipsWithoutActiveObject(t *testing.T) {
	s := memhost.NewScene()
	out := filepath.Join(t.TempDir(), "scene.usdz")

	res, err := New(s, nil).Export(context.Background(), Options{Output: out})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSkipped || res.Output != "" {
		t.Errorf("result = %+v, want skipped", res)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("skipped export should not write output")
	}
}

func TestExportInvalidOutput(t *testing.T) {
	s := loadScene(t, rigScene)
	_, err := New(s, nil).Export(context.Background(), Options{Output: "scene.fbx"})
	if !errors.Is(err, ErrInvalidOutputPath) {
		t.Errorf("Export() error = %v, want ErrInvalidOutputPath", err)
	}
}

func TestExportUSDA(t *testing.T) {
	s := loadScene(t, rigScene)
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Output = filepath.Join(dir, "scene.usda")

	res, err := New(s, nil).Export(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusFinished || res.Output != opts.Output || res.Document != opts.Output {
		t.Errorf("result = %+v", res)
	}
	if res.Objects != 2 || res.Meshes != 2 || res.Materials != 2 {
		t.Errorf("counts = %d objects, %d meshes, %d materials", res.Objects, res.Meshes, res.Materials)
	}

	doc := readFile(t, opts.Output)
	for _, want := range []string{
		"#usda 1.0",
		`def SkelRoot "Body"`,
		`def Skeleton "Rig"`,
		`def SkelAnimation "Wave"`,
		`def Xform "Crate"`,
		"custom matrix4d xformOp:transform",
		`def "Materials"`,
		"rel material:binding = </Materials/Skin>",
		"timeCodesPerSecond = 30",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if !strings.HasPrefix(doc, "#usda 1.0") {
		t.Error("document should start with the usda header")
	}
	checkPNG(t, filepath.Join(dir, "Skin_color.png"))
}

func TestExportAnimatedTransforms(t *testing.T) {
	s := loadScene(t, rigScene)
	opts := DefaultOptions()
	opts.Output = filepath.Join(t.TempDir(), "anim.usda")
	opts.Animate = true
	opts.ExportMaterials = false

	res, err := New(s, nil).Export(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Frames != 10 {
		t.Errorf("frames = %d, want 10", res.Frames)
	}
	doc := readFile(t, opts.Output)
	frames := sampledFrames(t, doc)
	if len(frames) != 10 {
		t.Fatalf("sampled frames = %v, want 1..10", frames)
	}
	for i, f := range frames {
		if f != i+1 {
			t.Fatalf("sampled frames = %v, want 1..10 in order", frames)
		}
	}
	if strings.Contains(doc, `def "Materials"`) || strings.Contains(doc, "material:binding") {
		t.Error("materials written although disabled")
	}
	if s.Frame() != 4 {
		t.Errorf("frame after export = %d, want 4", s.Frame())
	}
}

func TestExportUSDZ(t *testing.T) {
	s := loadScene(t, rigScene)
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Output = filepath.Join(dir, "out", "scene.usdz")

	res, err := New(s, nil).Export(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != opts.Output || res.Document != "" {
		t.Errorf("result = %+v", res)
	}

	zr, err := zip.OpenReader(opts.Output)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var entries []string
	for _, f := range zr.File {
		entries = append(entries, f.Name)
		if f.Method != zip.Store {
			t.Errorf("%s is compressed", f.Name)
		}
	}
	want := []string{"scene.usda", "Skin_color.png", "Wood_color.png"}
	if strings.Join(entries, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", entries, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "scene.usda")); !os.IsNotExist(err) {
		t.Error("intermediate document should not be kept")
	}
}

func TestExportKeepUSDA(t *testing.T) {
	s := loadScene(t, rigScene)
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Output = filepath.Join(dir, "scene.usdz")
	opts.KeepUSDA = true

	arch := &recordingArchiver{t: t}
	res, err := New(s, arch).Export(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Document != filepath.Join(dir, "scene.usda") {
		t.Errorf("document = %q", res.Document)
	}
	if arch.req.Output != opts.Output || len(arch.req.Materials) != 2 || len(arch.req.Assets) != 2 {
		t.Errorf("request = %+v", arch.req)
	}
	if m := arch.req.Materials[0]; m.Path != "/Materials/Skin" || m.ColorMap != "Skin_color.png" {
		t.Errorf("first material maps = %+v", m)
	}
	if _, err := os.Stat(res.Document); err != nil {
		t.Errorf("kept document missing: %v", err)
	}
}

func TestExportArchiverFailure(t *testing.T) {
	s := loadScene(t, rigScene)
	opts := DefaultOptions()
	opts.Output = filepath.Join(t.TempDir(), "scene.usdz")

	boom := errors.New("converter crashed")
	_, err := New(s, &recordingArchiver{t: t, err: boom}).Export(context.Background(), opts)
	if !errors.Is(err, boom) {
		t.Errorf("Export() error = %v, want archiver error", err)
	}
}

// mixedScene has one mesh with a material and one without any slot.
const mixedScene = `
active: A
selection: [A, B]
materials:
  - name: Red
    shader: principled
    inputs:
      Base Color: [1, 0, 0, 1]
objects:
  - name: A
    mesh: {primitive: cube}
    materials: [Red]
  - name: B
    location: [3, 0, 0]
    mesh: {primitive: cube}
`

func TestExportBindsDefaultMaterialAlongsideReal(t *testing.T) {
	s := loadScene(t, mixedScene)
	opts := DefaultOptions()
	opts.Output = filepath.Join(t.TempDir(), "mixed.usda")

	res, err := New(s, nil).Export(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Materials != 2 {
		t.Errorf("materials = %d, want 2", res.Materials)
	}
	doc := readFile(t, opts.Output)
	for _, want := range []string{
		"rel material:binding = </Materials/Red>",
		"rel material:binding = </Materials/DefaultMaterial>",
		`def Material "Red"`,
		`def Material "DefaultMaterial"`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if n := strings.Count(doc, `def Material "DefaultMaterial"`); n != 1 {
		t.Errorf("DefaultMaterial defined %d times, want 1", n)
	}
}

func TestWithDefaultMaterial(t *testing.T) {
	bare := []*usd.Object{{Name: "B", Meshes: []*usd.Mesh{{Name: "B", Material: usd.DefaultMaterialName}}}}
	textured := []*usd.Object{{Name: "A", Meshes: []*usd.Mesh{{Name: "A", Material: "Red"}}}}

	tests := []struct {
		name      string
		materials []*usd.Material
		objects   []*usd.Object
		want      []string
	}{
		{"appended when bound", []*usd.Material{usd.NewMaterial("Red")}, bare, []string{"Red", usd.DefaultMaterialName}},
		{"not bound", []*usd.Material{usd.NewMaterial("Red")}, textured, []string{"Red"}},
		{"already present", []*usd.Material{usd.DefaultMaterial()}, bare, []string{usd.DefaultMaterialName}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := withDefaultMaterial(tt.materials, tt.objects)
			if names := materialNames(got); strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("materials = %v, want %v", names, tt.want)
			}
		})
	}
}

func TestBuildStageEmptySelection(t *testing.T) {
	stage, err := New(memhost.NewScene(), nil).BuildStage(DefaultOptions(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(stage.Objects) != 0 || stage.TimeCodes != nil {
		t.Errorf("stage = %+v, want empty", stage)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// sampledFrames returns the frame keys of the first transform sample map.
func sampledFrames(t *testing.T, doc string) []int {
	t.Helper()
	var frames []int
	inMap := false
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "matrix4d xformOp:transform:transforms.timeSamples = {"):
			inMap = true
		case inMap && line == "}":
			return frames
		case inMap:
			key, _, ok := strings.Cut(line, ":")
			if !ok {
				t.Fatalf("malformed sample line %q", line)
			}
			f, err := strconv.Atoi(key)
			if err != nil {
				t.Fatalf("sample key %q: %v", key, err)
			}
			frames = append(frames, f)
		}
	}
	t.Fatal("document has no transform samples")
	return nil
}
