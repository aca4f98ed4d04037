package usdz

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultCommand is the packaging tool invoked by CommandArchiver.
var DefaultCommand = []string{"xcrun", "usdz_converter"}

// CommandArchiver packages documents by running an external converter as
//
//	<command...> <document> <output> [-v] [-m <path> -color_map f -normal_map f -ao_map f]...
type CommandArchiver struct {
	Command []string
	Log     *zap.Logger
}

// NewCommandArchiver returns an archiver running command, or DefaultCommand
// when command is empty.
func NewCommandArchiver(command []string, log *zap.Logger) *CommandArchiver {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandArchiver{Command: command, Log: log}
}

// Args returns the converter arguments for req, without the command.
func (a *CommandArchiver) Args(req Request) []string {
	args := []string{req.Document, req.Output}
	if req.Verbose {
		args = append(args, "-v")
	}
	for _, m := range req.Materials {
		if m.Empty() {
			continue
		}
		args = append(args, "-m", m.Path)
		if m.ColorMap != "" {
			args = append(args, "-color_map", m.ColorMap)
		}
		if m.NormalMap != "" {
			args = append(args, "-normal_map", m.NormalMap)
		}
		if m.AOMap != "" {
			args = append(args, "-ao_map", m.AOMap)
		}
	}
	return args
}

// Archive runs the converter from the document's directory so relative
// texture references resolve.
func (a *CommandArchiver) Archive(ctx context.Context, req Request) error {
	if len(a.Command) == 0 {
		return errors.New("no archive command configured")
	}
	var err error
	if req.Document, err = filepath.Abs(req.Document); err != nil {
		return errors.Wrap(err, "resolving document path")
	}
	if req.Output, err = filepath.Abs(req.Output); err != nil {
		return errors.Wrap(err, "resolving output path")
	}
	args := append(append([]string{}, a.Command[1:]...), a.Args(req)...)

	cmd := exec.CommandContext(ctx, a.Command[0], args...)
	cmd.Dir = filepath.Dir(req.Document)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	a.Log.Debug("running archiver", zap.String("command", a.Command[0]), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s failed: %s", a.Command[0], strings.TrimSpace(output.String()))
	}
	if req.Verbose && output.Len() > 0 {
		a.Log.Info("archiver output", zap.String("output", strings.TrimSpace(output.String())))
	}
	return nil
}
