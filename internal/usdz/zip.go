package usdz

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ZipArchiver writes packages directly without external tools.
type ZipArchiver struct {
	Log *zap.Logger
}

// NewZipArchiver returns a ZipArchiver logging to log.
func NewZipArchiver(log *zap.Logger) *ZipArchiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZipArchiver{Log: log}
}

// Archive writes the document followed by every asset, each stored under
// its base name. A partially written package is removed on failure.
func (a *ZipArchiver) Archive(ctx context.Context, req Request) (err error) {
	if err := os.MkdirAll(filepath.Dir(req.Output), 0755); err != nil {
		return errors.Wrap(err, "creating output dir")
	}
	out, err := os.Create(req.Output)
	if err != nil {
		return errors.Wrap(err, "creating package")
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing package file")
		}
		if err != nil {
			_ = os.Remove(req.Output)
		}
	}()

	w := NewWriter(out)
	files := append([]string{req.Document}, req.Assets...)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		name := filepath.Base(path)
		if err := w.Add(name, data); err != nil {
			return err
		}
		if req.Verbose {
			a.Log.Info("packaged", zap.String("entry", name), zap.Int("bytes", len(data)))
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	a.Log.Debug("package written", zap.String("output", req.Output), zap.Int("entries", len(files)))
	return nil
}
