package main

import (
	"archive/zip"
	"context"
	"path/filepath"
	"testing"

	"github.com/Faultbox/usdz-export/internal/config"
	"github.com/Faultbox/usdz-export/internal/usdz"
)

func TestDefaultOutput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"scene.yaml", "scene.usdz"},
		{filepath.Join("scenes", "robot.yml"), filepath.Join("scenes", "robot.usdz")},
		{"noext", "noext.usdz"},
	}
	for _, tt := range tests {
		if got := defaultOutput(tt.in); got != tt.want {
			t.Errorf("defaultOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Export.BakeAO = true
	cfg.Export.Scale = 0.5
	cfg.Archive.Verbose = true

	opts := exportOptions(cfg, "out.usdz")
	if opts.Output != "out.usdz" || !opts.BakeAO || opts.Scale != 0.5 || !opts.Verbose || !opts.ExportMaterials {
		t.Errorf("exportOptions() = %+v", opts)
	}
}

func TestNewArchiver(t *testing.T) {
	cfg := config.Default()
	if _, ok := newArchiver(cfg).(*usdz.ZipArchiver); !ok {
		t.Error("builtin mode should use the zip archiver")
	}
	cfg.Archive.Mode = config.ArchiveCommand
	a, ok := newArchiver(cfg).(*usdz.CommandArchiver)
	if !ok || a.Command[0] != "xcrun" {
		t.Errorf("command mode archiver = %#v", a)
	}
}

func TestExportOnce(t *testing.T) {
	cfg := config.Default()
	cfg.Export.Animate = true
	out := filepath.Join(t.TempDir(), "robot.usdz")

	if err := exportOnce(context.Background(), cfg, filepath.Join("testdata", "robot.yaml"), exportOptions(cfg, out)); err != nil {
		t.Fatalf("exportOnce() error = %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if len(zr.File) == 0 || zr.File[0].Name != "robot.usda" {
		t.Fatalf("package should start with the document")
	}
	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"Steel_color.png", "Steel_normal.png", "Crate_Wood_color.png"} {
		if !names[want] {
			t.Errorf("package missing %s", want)
		}
	}
}
