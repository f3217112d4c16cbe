package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/aussiebot/console/internal/value"
)

// SessionConfig drives the session state machine.
type SessionConfig struct {
	// Channel scopes session frames to one bot instance.
	Channel string `env:"SESSION_CHANNEL" yaml:"channel" required:"true"`

	// Platform tags outbound envelopes. Accepts the usual aliases
	// (yt/youtube, tw/twitch, d/discord, web).
	Platform string `env:"SESSION_PLATFORM" yaml:"platform" default:"web"`

	// SaveAckTimeout bounds the wait for a config save acknowledgment.
	SaveAckTimeout time.Duration `env:"SESSION_SAVE_ACK_TIMEOUT" yaml:"save_ack_timeout" default:"10s"`

	// Headless skips the session machine entirely; only the HTTP
	// surface stays up.
	Headless bool `env:"SESSION_HEADLESS" yaml:"headless" default:"false"`
}

// Validate checks SessionConfig.
func (s SessionConfig) Validate() error {
	var result error

	if s.Channel == "" {
		result = multierror.Append(result, fmt.Errorf("channel must not be empty"))
	}
	if _, err := value.ParsePlatform(s.Platform); err != nil {
		result = multierror.Append(result, fmt.Errorf("platform: %w", err))
	}
	if s.SaveAckTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("save_ack_timeout must be greater than 0"))
	}

	return result
}

// ParsedPlatform returns the envelope platform tag. Call Validate first;
// an unparseable value falls back to web.
func (s SessionConfig) ParsedPlatform() value.Platform {
	p, err := value.ParsePlatform(s.Platform)
	if err != nil {
		return value.PlatformWeb
	}
	return p
}
