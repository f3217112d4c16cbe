package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/aussiebot/console/internal/api"
	"github.com/aussiebot/console/internal/credstore"
	"github.com/aussiebot/console/internal/session"
	"github.com/aussiebot/console/internal/transport"
	"github.com/aussiebot/console/pkg/logger"
	"github.com/aussiebot/console/pkg/metrics"
	"github.com/aussiebot/console/pkg/utils"
)

// ServeCommand returns the command that runs the console: the backend
// session plus the local HTTP surface.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the console session and API server",
		Action:  serveAction,
	}
}

func serveAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		getLogger(ctx).Error("Failed to load config", logger.ErrorField(err))
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Rebuild the logger from the effective configuration so file and
	// env settings win over the bootstrap flags.
	log := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.Logging.Format,
		Service: cfg.ServiceName,
	})
	cfg.LogConfig(log)

	m := metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, cfg.Metrics.EnableTransportMetrics, log)

	creds := credstore.New(credstore.NewLocalFileProvider(cfg.Credentials.Dir), log)

	channel := transport.New(transport.Config{
		URL:               cfg.Backend.URL,
		HeartbeatInterval: cfg.Backend.HeartbeatInterval,
		ReconnectDelay:    cfg.Backend.ReconnectDelay,
	}, log, &m)

	machine := session.New(session.Config{
		Channel:        cfg.Session.Channel,
		Platform:       cfg.Session.ParsedPlatform(),
		SaveAckTimeout: cfg.Session.SaveAckTimeout,
		Headless:       cfg.Session.Headless,
	}, channel, creds, log, &m)

	runCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()
	go machine.Run(runCtx)

	// Start the HTTP server
	s := api.NewServer(cfg, machine, &m, log)
	errChan, closer, gracefulCloser := s.Listen()

	log.Info("Console started")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	mergedErrChan := utils.MergeErrorChans(errChan)

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))
		cancel()
		gracefulCloser()
		log.Info("Console exited gracefully")
	case err := <-mergedErrChan:
		if err != nil {
			log.Error("Fatal server error occurred", logger.ErrorField(err))
			cancel()
			closer()
			return fmt.Errorf("server error: %w", err)
		}
		log.Info("Server exited normally")
	}

	return nil
}
