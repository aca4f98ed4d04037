package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/Faultbox/usdz-export/internal/config"
	"github.com/Faultbox/usdz-export/internal/export"
	"github.com/Faultbox/usdz-export/internal/host/memhost"
	"github.com/Faultbox/usdz-export/internal/logger"
)

func exportCommand() cli.Command {
	return cli.Command{
		Name:  "export",
		Usage: "export the selection of a scene description",
		Description: `
Load a YAML scene description, export its selected objects (active object
first) and package the result. The output type follows the extension:
.usdz writes a package, .usda writes the document and its textures.`,
		ArgsUsage: "<scene.yaml>",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "output, o",
				Usage: "output file (.usdz or .usda), defaults to the scene name with .usdz",
			},
			cli.BoolFlag{
				Name:  "no-materials",
				Usage: "skip materials and textures",
			},
			cli.BoolFlag{
				Name:  "keep-usda",
				Usage: "keep the intermediate document next to the package",
			},
			cli.BoolFlag{
				Name:  "bake-ao",
				Usage: "bake an ambient occlusion map per mesh",
			},
			cli.IntFlag{
				Name:  "samples",
				Usage: "ambient occlusion samples",
			},
			cli.Float64Flag{
				Name:  "scale",
				Usage: "uniform scale applied to root objects",
			},
			cli.BoolFlag{
				Name:  "animate",
				Usage: "sample object transforms over the frame range",
			},
			cli.StringFlag{
				Name:  "archiver",
				Usage: "package writer: builtin or command",
			},
			cli.BoolFlag{
				Name:  "verbose",
				Usage: "report every packaged file",
			},
			cli.BoolFlag{
				Name:  "watch, w",
				Usage: "export again whenever the scene file changes",
			},
		},
		Action: runExport,
	}
}

func runExport(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("export needs exactly one scene file")
	}
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}

	scenePath := ctx.Args().First()
	output := ctx.String("output")
	if output == "" {
		output = defaultOutput(scenePath)
	}
	opts := exportOptions(cfg, output)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !ctx.Bool("watch") {
		return exportOnce(runCtx, cfg, scenePath, opts)
	}

	log := logger.Named("watch")
	return watchFile(runCtx, scenePath, log, func() {
		if err := exportOnce(runCtx, cfg, scenePath, opts); err != nil {
			log.Error("export failed", zap.Error(err))
		}
	})
}

func exportOnce(ctx context.Context, cfg *config.Config, scenePath string, opts export.Options) error {
	scene, err := memhost.LoadFile(scenePath)
	if err != nil {
		return err
	}
	res, err := export.New(scene, newArchiver(cfg)).Export(ctx, opts)
	if err != nil {
		return err
	}

	if res.Status == export.StatusSkipped {
		fmt.Println("Nothing to export: no active object or empty selection")
		return nil
	}
	fmt.Printf("Exported %s\n", res.Output)
	fmt.Printf("  Objects:   %d\n", res.Objects)
	fmt.Printf("  Meshes:    %d\n", res.Meshes)
	fmt.Printf("  Materials: %d\n", res.Materials)
	if res.Frames > 0 {
		fmt.Printf("  Frames:    %d\n", res.Frames)
	}
	if res.Document != "" && res.Document != res.Output {
		fmt.Printf("  Document:  %s\n", res.Document)
	}
	return nil
}

// defaultOutput names the package after the scene file.
func defaultOutput(scenePath string) string {
	base := strings.TrimSuffix(filepath.Base(scenePath), filepath.Ext(scenePath))
	return filepath.Join(filepath.Dir(scenePath), base+".usdz")
}
