package config

// CredentialsConfig locates the persisted login slot.
type CredentialsConfig struct {
	// Dir is the directory holding the login slot file.
	Dir string `env:"CREDENTIALS_DIR" yaml:"credentials_dir" default:".aussiebot"`
}
