package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ArchiveType selects the final artifact.
type ArchiveType string

// Supported output types.
const (
	ArchiveUSDZ ArchiveType = "usdz"
	ArchiveUSDA ArchiveType = "usda"
)

// ErrInvalidOutputPath is returned when the output path cannot name a
// document or package.
var ErrInvalidOutputPath = errors.New("invalid output path")

// Options configures one export run. The pipeline never modifies it.
type Options struct {
	// Output is the path of the .usdz or .usda file to produce.
	Output string

	ExportMaterials bool
	// KeepUSDA leaves the intermediate document and textures next to a
	// .usdz output.
	KeepUSDA  bool
	BakeAO    bool
	AOSamples int
	// Scale is the uniform scale applied to root objects and root bones.
	Scale   float64
	Animate bool
	// Verbose asks the archiver to report each packaged file.
	Verbose bool
}

// DefaultOptions returns the settings used when the caller specifies none.
func DefaultOptions() Options {
	return Options{
		ExportMaterials: true,
		AOSamples:       8,
		Scale:           1,
	}
}

// outputPath is a parsed Options.Output.
type outputPath struct {
	Dir  string
	Name string
	Type ArchiveType
}

func (p outputPath) file(ext string) string {
	return filepath.Join(p.Dir, p.Name+"."+ext)
}

func parseOutput(path string) (outputPath, error) {
	if strings.TrimSpace(path) == "" {
		return outputPath{}, fmt.Errorf("%w: empty", ErrInvalidOutputPath)
	}
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || strings.HasPrefix(name, ".") {
		return outputPath{}, fmt.Errorf("%w: %q has no file name", ErrInvalidOutputPath, path)
	}

	var typ ArchiveType
	switch ext {
	case ".usdz":
		typ = ArchiveUSDZ
	case ".usda":
		typ = ArchiveUSDA
	default:
		return outputPath{}, fmt.Errorf("%w: %q must end in .usdz or .usda", ErrInvalidOutputPath, path)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return outputPath{}, fmt.Errorf("%w: %v", ErrInvalidOutputPath, err)
	}
	return outputPath{Dir: dir, Name: name, Type: typ}, nil
}
