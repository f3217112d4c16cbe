// Package config holds the console's application configuration, loaded
// from YAML with environment variable overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/aussiebot/console/pkg/config"
	"github.com/aussiebot/console/pkg/logger"
)

// AppConfig holds all configuration for the console.
type AppConfig struct {
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"aussiebot-console"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	Logging LoggingConfig `yaml:"logging,inline"`

	// Backend is the websocket connection to the bot process.
	Backend BackendConfig `yaml:"backend,inline"`

	// Session drives the state machine's envelope tagging and timeouts.
	Session SessionConfig `yaml:"session,inline"`

	// Credentials is the persisted login slot location.
	Credentials CredentialsConfig `yaml:"credentials,inline"`

	// HTTP is the local API server exposing snapshots and accepting events.
	HTTP config.HTTPServerConfig `yaml:"http,inline"`

	Security SecurityConfig       `yaml:"security,inline"`
	Metrics  config.MetricsConfig `yaml:"metrics,inline"`
}

// Load reads configuration from the given YAML file (missing file is
// fine, env vars and defaults still apply).
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := config.GetConfig(cfg, path, true); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration tree.
func (c *AppConfig) Validate() error {
	var result error

	for _, v := range []config.Validator{
		c.Logging, c.Backend, c.Session, c.HTTP, c.Metrics,
	} {
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if c.ServiceName == "" {
		result = multierror.Append(result, fmt.Errorf("service_name must not be empty"))
	}

	return result
}

// GetLogLevel returns the parsed logger level.
func (c *AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(strings.ToLower(c.Logging.LogLevel))
}

// IsProduction returns true if running in production environment.
func (c *AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// LogConfig logs the effective configuration, without credentials.
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Configuration loaded",
		logger.StringField("service", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.StringField("backend_url", c.Backend.URL),
		logger.StringField("channel", c.Session.Channel),
		logger.IntField("http_port", c.HTTP.Port),
		logger.BoolField("metrics_exposed", c.Metrics.ExposeMetrics),
	)
}
