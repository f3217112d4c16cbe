package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// BackendConfig holds the websocket connection to the bot process.
type BackendConfig struct {
	// URL is the websocket endpoint of the backend bot.
	URL string `env:"BACKEND_URL" yaml:"backend_url" required:"true"`

	// HeartbeatInterval is the period between ping frames while connected.
	HeartbeatInterval time.Duration `env:"BACKEND_HEARTBEAT_INTERVAL" yaml:"heartbeat_interval" default:"30s"`

	// ReconnectDelay is the wait before redialing a dropped connection.
	ReconnectDelay time.Duration `env:"BACKEND_RECONNECT_DELAY" yaml:"reconnect_delay" default:"3s"`

	// HealthURL is an optional HTTP status endpoint of the backend,
	// folded into the console's readiness check when set.
	HealthURL string `env:"BACKEND_HEALTH_URL" yaml:"backend_health_url"`
}

// Validate checks BackendConfig for a plausible endpoint and timings.
func (b BackendConfig) Validate() error {
	var result error

	if !strings.HasPrefix(b.URL, "ws://") && !strings.HasPrefix(b.URL, "wss://") {
		result = multierror.Append(result, fmt.Errorf("backend_url must use the ws or wss scheme, got %q", b.URL))
	}
	if b.HeartbeatInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("heartbeat_interval must be greater than 0"))
	}
	if b.ReconnectDelay <= 0 {
		result = multierror.Append(result, fmt.Errorf("reconnect_delay must be greater than 0"))
	}

	return result
}
