package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/aussiebot/console/pkg/config"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	config.CommonConfig `yaml:",inline"`

	Format string `env:"LOG_FORMAT" yaml:"log_format" default:"json"`
}

// Validate checks LoggingConfig for a valid level and format.
func (l LoggingConfig) Validate() error {
	result := l.CommonConfig.Validate()

	if l.Format != "json" && l.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log_format must be either 'json' or 'text', got %q", l.Format))
	}

	return result
}
