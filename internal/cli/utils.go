package cli

import (
	"github.com/urfave/cli/v2"

	appconfig "github.com/aussiebot/console/internal/config"
	"github.com/aussiebot/console/pkg/logger"
)

// getLogger retrieves the logger from the CLI context metadata
func getLogger(ctx *cli.Context) logger.Logger {
	if ctx.App.Metadata != nil {
		if log, ok := ctx.App.Metadata["logger"].(logger.Logger); ok {
			return log
		}
	}

	// Fallback to default logger if not found
	return logger.NewLogger(logger.Config{
		Level:   logger.InfoLevel,
		Format:  "json",
		Service: "aussiebot-console",
	})
}

// loadConfig reads configuration from the optional file named by the
// config-file flag plus environment overrides, then validates it.
func loadConfig(ctx *cli.Context) (*appconfig.AppConfig, error) {
	cfg, err := appconfig.Load(ctx.String("config-file"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
