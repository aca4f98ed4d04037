// Package export converts a host scene into a USD document and packages it.
//
// A run reads the selection, builds object, mesh, skeleton and material
// records, writes the usda document with its textures into a working
// directory and hands the result to an archiver.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/usdz-export/internal/host"
	"github.com/Faultbox/usdz-export/internal/logger"
	"github.com/Faultbox/usdz-export/internal/usdz"
	"github.com/Faultbox/usdz-export/pkg/usd"
)

// Status reports how a run ended.
type Status string

// Run statuses.
const (
	StatusFinished Status = "FINISHED"
	StatusSkipped  Status = "SKIPPED"
)

// Result summarizes a run.
type Result struct {
	Status Status
	// Output is the file produced, empty when skipped.
	Output string
	// Document is the usda path left on disk, empty when it was only
	// written to the temporary directory.
	Document  string
	Objects   int
	Meshes    int
	Materials int
	Frames    int
}

// Exporter runs exports against one scene.
type Exporter struct {
	scene    host.Scene
	archiver usdz.Archiver
	log      *zap.Logger
}

// New returns an exporter. A nil archiver selects the built-in package
// writer.
func New(scene host.Scene, archiver usdz.Archiver) *Exporter {
	log := logger.Named("export")
	if archiver == nil {
		archiver = usdz.NewZipArchiver(log.Named("usdz"))
	}
	return &Exporter{scene: scene, archiver: archiver, log: log}
}

// Export writes the selection to opts.Output. An empty selection or a
// missing active object produces no output and a StatusSkipped result.
func (e *Exporter) Export(ctx context.Context, opts Options) (*Result, error) {
	out, err := parseOutput(opts.Output)
	if err != nil {
		return nil, err
	}

	selection := orderSelection(e.scene)
	if len(selection) == 0 {
		e.log.Info("nothing selected, skipping export")
		return &Result{Status: StatusSkipped}, nil
	}

	tmp, err := os.MkdirTemp("", "usdz-export-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	workDir := tmp
	keep := out.Type == ArchiveUSDA || opts.KeepUSDA
	if keep {
		workDir = out.Dir
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return nil, fmt.Errorf("creating output dir: %w", err)
		}
	}

	stage, frames, err := e.build(selection, opts, workDir)
	if err != nil {
		return nil, err
	}

	docPath := out.file("usda")
	if !keep {
		docPath = filepath.Join(workDir, out.Name+".usda")
	}
	if err := writeDocument(docPath, stage); err != nil {
		return nil, err
	}

	res := summarize(stage)
	res.Status = StatusFinished
	res.Output = docPath
	if stage.TimeCodes != nil {
		res.Frames = frames.Len()
	}
	if keep {
		res.Document = docPath
	}

	if out.Type == ArchiveUSDZ {
		req := archiveRequest(stage, docPath, out.file("usdz"), workDir)
		req.Verbose = opts.Verbose
		if err := e.archiver.Archive(ctx, req); err != nil {
			return nil, fmt.Errorf("packaging %s: %w", req.Output, err)
		}
		res.Output = req.Output
	}

	e.log.Info("export finished",
		zap.String("output", res.Output),
		zap.Int("objects", res.Objects),
		zap.Int("meshes", res.Meshes),
		zap.Int("materials", res.Materials),
		zap.Int("frames", res.Frames))
	return res, nil
}

// BuildStage builds the document for the current selection without
// writing it. Textures are written into dir.
func (e *Exporter) BuildStage(opts Options, dir string) (*usd.Stage, error) {
	selection := orderSelection(e.scene)
	if len(selection) == 0 {
		return &usd.Stage{BindMaterials: opts.ExportMaterials}, nil
	}
	stage, _, err := e.build(selection, opts, dir)
	return stage, err
}

func (e *Exporter) build(selection []host.Object, opts Options, dir string) (*usd.Stage, frameRange, error) {
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	start, end := e.scene.FrameRange()
	frames := frameRange{Start: start, End: end, FPS: e.scene.FPS()}

	objects, err := newGraphBuilder(e.scene, opts, frames, e.log).build(selection)
	if err != nil {
		return nil, frames, fmt.Errorf("building scene graph: %w", err)
	}

	stage := &usd.Stage{Objects: objects, BindMaterials: opts.ExportMaterials}

	if opts.ExportMaterials {
		mx := &materialExtractor{scene: e.scene, dir: dir, log: e.log.Named("material")}
		if stage.Materials, err = mx.extractAll(selection, opts); err != nil {
			return nil, frames, fmt.Errorf("extracting materials: %w", err)
		}
		stage.Materials = withDefaultMaterial(stage.Materials, objects)
	}

	if opts.Animate || hasSkelAnimation(objects) {
		stage.TimeCodes = &usd.TimeCodes{Start: frames.Start, End: frames.End, PerSecond: frames.FPS}
	}
	return stage, frames, nil
}

// orderSelection returns the selection with the active object first, or
// nil when there is no active object.
func orderSelection(scene host.Scene) []host.Object {
	active := scene.Active()
	selected := scene.Selection()
	if active == nil || len(selected) == 0 {
		return nil
	}
	ordered := []host.Object{active}
	for _, obj := range selected {
		if obj.Name() != active.Name() {
			ordered = append(ordered, obj)
		}
	}
	return ordered
}

// withDefaultMaterial appends the placeholder material when a mesh without
// a material of its own binds it and no record of that name exists yet.
func withDefaultMaterial(materials []*usd.Material, objects []*usd.Object) []*usd.Material {
	for _, m := range materials {
		if m.Name == usd.DefaultMaterialName {
			return materials
		}
	}
	bound := false
	for _, root := range objects {
		root.Walk(func(o *usd.Object, _ int) {
			for _, m := range o.Meshes {
				if m.Material == usd.DefaultMaterialName {
					bound = true
				}
			}
		})
	}
	if bound {
		materials = append(materials, usd.DefaultMaterial())
	}
	return materials
}

func hasSkelAnimation(objects []*usd.Object) bool {
	found := false
	for _, root := range objects {
		root.Walk(func(o *usd.Object, _ int) {
			if o.Animation != nil {
				found = true
			}
		})
	}
	return found
}

func writeDocument(path string, stage *usd.Stage) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing document: %w", cerr)
		}
	}()
	return usd.NewEncoder(f).Encode(stage)
}

func summarize(stage *usd.Stage) *Result {
	res := &Result{Materials: len(stage.Materials)}
	for _, root := range stage.Objects {
		root.Walk(func(o *usd.Object, _ int) {
			res.Objects++
			res.Meshes += len(o.Meshes)
		})
	}
	return res
}

func archiveRequest(stage *usd.Stage, doc, output, dir string) usdz.Request {
	req := usdz.Request{Document: doc, Output: output}
	if !stage.BindMaterials {
		return req
	}
	seen := make(map[string]bool)
	for _, m := range stage.Materials {
		req.Materials = append(req.Materials, usdz.MaterialMaps{
			Path:      m.Path(),
			ColorMap:  m.ColorMap,
			NormalMap: m.NormalMap,
			AOMap:     m.OcclusionMap,
		})
		for _, file := range m.Textures() {
			if seen[file] {
				continue
			}
			seen[file] = true
			req.Assets = append(req.Assets, filepath.Join(dir, file))
		}
	}
	return req
}
