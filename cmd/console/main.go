package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	commands "github.com/aussiebot/console/internal/cli"
	"github.com/aussiebot/console/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:    "aussiebot-console",
		Usage:   "Administration console for the aussiebot chat bot",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config-file",
				Value:   "",
				Usage:   "Path to configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// Initialize global logger from flags
			logLevel := logger.ParseLevel(ctx.String("log-level"))
			log := logger.NewLogger(logger.Config{
				Level:   logLevel,
				Format:  "json",
				Service: "aussiebot-console",
			})

			// Store logger in context for commands to use
			ctx.App.Metadata = map[string]interface{}{
				"logger": log,
			}

			return nil
		},
		Commands: []*cli.Command{
			commands.ConfigCommand(),
			commands.ServeCommand(),
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
