// usdztool exports scene descriptions to USDZ packages and inspects the
// documents they produce.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/Faultbox/usdz-export/internal/logger"
)

func main() {
	app := cli.NewApp()
	app.Name = "usdztool"
	app.Usage = "convert scene descriptions to USDZ packages"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to a YAML or TOML config file",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "also write logs to this file",
		},
	}
	app.Commands = []cli.Command{
		exportCommand(),
		inspectCommand(),
		configCommand(),
	}
	app.After = func(*cli.Context) error {
		logger.Sync()
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
