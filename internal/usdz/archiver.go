// Package usdz packages a usda document and its texture files into a USDZ
// archive.
package usdz

import "context"

// MaterialMaps lists the baked texture files of one material, as passed to
// external packaging tools.
type MaterialMaps struct {
	// Path is the material prim path, e.g. /Materials/Wood.
	Path      string
	ColorMap  string
	NormalMap string
	AOMap     string
}

// Empty reports whether the material carries none of the maps.
func (m MaterialMaps) Empty() bool {
	return m.ColorMap == "" && m.NormalMap == "" && m.AOMap == ""
}

// Request describes one packaging job. File paths are absolute or relative
// to the working directory.
type Request struct {
	Document  string
	Output    string
	Verbose   bool
	Materials []MaterialMaps
	// Assets are the texture files referenced by the document.
	Assets []string
}

// Archiver turns a document plus side-car files into a package.
type Archiver interface {
	Archive(ctx context.Context, req Request) error
}
