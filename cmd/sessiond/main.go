package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func app() *cli.App {
	return &cli.App{
		Name:    "sessiond",
		Usage:   "session-backed authentication server",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
		Commands: []*cli.Command{
			serveCommand(),
			{
				Name:  "version",
				Usage: "print build information",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintf(c.App.Writer, "sessiond %s\n", c.App.Version)
					return err
				},
			},
		},
	}
}

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
