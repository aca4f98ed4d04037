package main

import (
	"github.com/urfave/cli"

	"github.com/Faultbox/usdz-export/internal/config"
	"github.com/Faultbox/usdz-export/internal/export"
	"github.com/Faultbox/usdz-export/internal/logger"
	"github.com/Faultbox/usdz-export/internal/usdz"
)

// overrides collects global and export flags set on the command line.
func overrides(ctx *cli.Context) config.Overrides {
	o := config.Overrides{
		ConfigPath: ctx.GlobalString("config"),
		Debug:      ctx.GlobalBool("debug"),
		LogFile:    ctx.GlobalString("log-file"),
	}
	boolFlag := func(name string) *bool {
		if !ctx.IsSet(name) {
			return nil
		}
		v := ctx.Bool(name)
		return &v
	}
	o.KeepUSDA = boolFlag("keep-usda")
	o.BakeAO = boolFlag("bake-ao")
	o.Animate = boolFlag("animate")
	o.Verbose = boolFlag("verbose")
	if ctx.Bool("no-materials") {
		off := false
		o.Materials = &off
	}
	o.AOSamples = ctx.Int("samples")
	o.Scale = ctx.Float64("scale")
	o.ArchiveMode = ctx.String("archiver")
	return o
}

// setup loads the configuration and starts logging.
func setup(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(overrides(ctx))
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// exportOptions maps the configuration onto one run.
func exportOptions(cfg *config.Config, output string) export.Options {
	return export.Options{
		Output:          output,
		ExportMaterials: cfg.Export.Materials,
		KeepUSDA:        cfg.Export.KeepUSDA,
		BakeAO:          cfg.Export.BakeAO,
		AOSamples:       cfg.Export.AOSamples,
		Scale:           cfg.Export.Scale,
		Animate:         cfg.Export.Animate,
		Verbose:         cfg.Archive.Verbose,
	}
}

// newArchiver returns the archiver selected by the configuration.
func newArchiver(cfg *config.Config) usdz.Archiver {
	log := logger.Named("usdz")
	if cfg.Archive.Mode == config.ArchiveCommand {
		return usdz.NewCommandArchiver(cfg.Archive.Command, log)
	}
	return usdz.NewZipArchiver(log)
}
