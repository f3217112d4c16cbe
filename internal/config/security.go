package config

// SecurityConfig holds the HTTP surface's security settings.
type SecurityConfig struct {
	// CORSAllowedOrigins lists the presentation-layer origins allowed to
	// call the local API.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins" default:"http://localhost:3000,http://localhost:8080"`

	// MaxRequestSize caps event submission bodies.
	MaxRequestSize int64 `env:"MAX_REQUEST_SIZE" yaml:"max_request_size" default:"1048576"`
}
