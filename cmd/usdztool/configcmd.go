package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/Faultbox/usdz-export/internal/config"
)

func configCommand() cli.Command {
	return cli.Command{
		Name:  "config",
		Usage: "show or save the effective configuration",
		Subcommands: []cli.Command{
			{
				Name:   "show",
				Usage:  "print the effective configuration as YAML",
				Action: showConfig,
			},
			{
				Name:      "save",
				Usage:     "write the effective configuration",
				ArgsUsage: "[path]",
				Description: `
Without a path the file goes to the user config directory, where later
runs pick it up automatically.`,
				Action: saveConfig,
			},
		},
	}
}

func showConfig(ctx *cli.Context) error {
	cfg, err := config.Load(overrides(ctx))
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func saveConfig(ctx *cli.Context) error {
	cfg, err := config.Load(overrides(ctx))
	if err != nil {
		return err
	}

	path := ctx.Args().First()
	if path == "" {
		if path, err = cfg.Save(); err != nil {
			return err
		}
	} else if err := cfg.SaveTo(path); err != nil {
		return err
	}
	fmt.Printf("Config written to %s\n", path)
	return nil
}
