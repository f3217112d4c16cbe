// Package credstore persists the console's login credentials between
// sessions: a single slot holding a JSON-encoded [username, code] pair.
// The slot is read once when authentication starts and written once when
// it completes; it is never deleted by the console.
package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aussiebot/console/pkg/logger"
)

const slotPath = "login.json"

// Credentials is the persisted (username, code) pair. Wire form is the
// tuple ["user", "code"].
type Credentials struct {
	User string
	Code string
}

func (c Credentials) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{c.User, c.Code})
}

func (c *Credentials) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("invalid credential pair: %w", err)
	}
	c.User, c.Code = pair[0], pair[1]
	return nil
}

// FileProvider is the storage backend for the credential slot.
type FileProvider interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}

// LocalFileProvider implements FileProvider on the local filesystem.
type LocalFileProvider struct {
	baseDir string
}

// NewLocalFileProvider creates a provider rooted at baseDir.
func NewLocalFileProvider(baseDir string) *LocalFileProvider {
	return &LocalFileProvider{baseDir: baseDir}
}

// Read reads a file from the local filesystem.
func (p *LocalFileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.baseDir, path)) //nolint:gosec // G304: Path is constructed from trusted baseDir
}

// Write writes data to a local file, creating parent directories as needed.
func (p *LocalFileProvider) Write(ctx context.Context, path string, data []byte) error {
	fullPath := filepath.Join(p.baseDir, path)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return os.WriteFile(fullPath, data, 0o600)
}

// Exists checks if a file exists on the local filesystem.
func (p *LocalFileProvider) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(p.baseDir, path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Store reads and writes the credential slot. Failures are logged and
// otherwise swallowed; the session machine treats credential persistence
// as fire-and-forget and a missing slot simply means logging in fresh.
type Store struct {
	provider FileProvider
	log      logger.Logger
}

// New creates a credential store on the given provider.
func New(provider FileProvider, log logger.Logger) *Store {
	return &Store{provider: provider, log: log}
}

// Load returns the persisted credentials, if any. A missing or corrupt
// slot yields (zero, false).
func (s *Store) Load(ctx context.Context) (Credentials, bool) {
	exists, err := s.provider.Exists(ctx, slotPath)
	if err != nil {
		s.log.Warn("failed to check credential slot", logger.ErrorField(err))
		return Credentials{}, false
	}
	if !exists {
		return Credentials{}, false
	}

	data, err := s.provider.Read(ctx, slotPath)
	if err != nil {
		s.log.Warn("failed to read credential slot", logger.ErrorField(err))
		return Credentials{}, false
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.log.Warn("credential slot is corrupt, ignoring", logger.ErrorField(err))
		return Credentials{}, false
	}
	if creds.User == "" {
		return Credentials{}, false
	}
	return creds, true
}

// Save persists the credentials. Errors are logged, not returned.
func (s *Store) Save(ctx context.Context, creds Credentials) {
	data, err := json.Marshal(creds)
	if err != nil {
		s.log.Error("failed to encode credentials", logger.ErrorField(err))
		return
	}
	if err := s.provider.Write(ctx, slotPath, data); err != nil {
		s.log.Error("failed to write credential slot", logger.ErrorField(err))
	}
}
