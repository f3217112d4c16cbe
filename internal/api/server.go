// Package api exposes the console core over HTTP: immutable session
// snapshots for the presentation layer, event submission into the state
// machine, and the usual health and metrics endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aussiebot/console/internal/config"
	"github.com/aussiebot/console/internal/session"
	"github.com/aussiebot/console/pkg/health"
	"github.com/aussiebot/console/pkg/health/checkers"
	"github.com/aussiebot/console/pkg/httpmiddleware"
	"github.com/aussiebot/console/pkg/logger"
	"github.com/aussiebot/console/pkg/metrics"
)

// Machine is the session surface the API serves. Satisfied by
// *session.Machine.
type Machine interface {
	Snapshot() session.Snapshot
	Dispatch(ev session.Event)
}

// Server is the console's local HTTP server.
type Server struct {
	log     logger.Logger
	cfg     *config.AppConfig
	machine Machine
	metrics *metrics.Metrics
	server  *http.Server
}

// NewServer builds the HTTP server around the session machine.
func NewServer(cfg *config.AppConfig, machine Machine, m *metrics.Metrics, log logger.Logger) *Server {
	s := &Server{
		log:     log,
		cfg:     cfg,
		machine: machine,
		metrics: m,
	}

	s.server = &http.Server{
		Addr:           cfg.HTTP.Addr(),
		Handler:        s.router(),
		ReadTimeout:    cfg.HTTP.ReadTimeout(),
		WriteTimeout:   cfg.HTTP.WriteTimeout(),
		IdleTimeout:    cfg.HTTP.IdleTimeout(),
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	log.Info("HTTP server initialized", logger.IntField("http_port", cfg.HTTP.Port))
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	mwConfig := httpmiddleware.DefaultConfig()
	mwConfig.Logger = s.log
	mwConfig.EnableLogging = true
	corsConfig := httpmiddleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.cfg.Security.CORSAllowedOrigins
	mwConfig.CORS = &corsConfig
	httpmiddleware.ApplyToRouter(r, mwConfig)

	checker := health.New(health.WithLogger(s.log))
	checker.AddReadinessCheck(health.NewCheckFunc("backend-session", func(ctx context.Context) error {
		if !s.machine.Snapshot().Connected {
			return fmt.Errorf("backend connection is down")
		}
		return nil
	}))
	if s.cfg.Backend.HealthURL != "" {
		checker.AddReadinessCheck(checkers.NewHTTPChecker(s.cfg.Backend.HealthURL, "backend-http"))
	}

	r.Get("/healthz", checker.LivenessHandler())
	r.Get("/readyz", checker.ReadinessHandler())
	if s.cfg.Metrics.ExposeMetrics {
		r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Post("/events", s.handleEvent)
	})

	return r
}

// Listen starts serving and returns a channel carrying a fatal server
// error, plus forced and graceful closers.
func (s *Server) Listen() (chan error, func(), func()) {
	errChan := make(chan error, 1)

	go func() {
		s.log.Info("Starting HTTP server", logger.StringField("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	closer := func() {
		if err := s.server.Close(); err != nil {
			s.log.Error("Error during forced shutdown", logger.ErrorField(err))
		}
	}
	gracefulCloser := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.WriteTimeout())
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Error("Error during graceful shutdown", logger.ErrorField(err))
		}
	}

	return errChan, closer, gracefulCloser
}
