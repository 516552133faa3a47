package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "marketchat",
		Usage:   "Buyer-seller chat for the storefront API",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"MARKETCHAT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token, overrides auth.token",
				EnvVars: []string{"MARKETCHAT_TOKEN"},
			},
		},
		Commands: []*cli.Command{
			chatCommand(),
			inboxCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
