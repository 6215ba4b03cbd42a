package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// TokenKey is the well-known key the admin token is stored under.
const TokenKey = "admin_token"

const configVersion = 1

// ErrInvalidConfig is returned when the session file cannot be parsed.
var ErrInvalidConfig = errors.New("invalid session file")

// Config represents the session file. It holds nothing but the token.
type Config struct {
	Version    int    `json:"version"`
	AdminToken string `json:"admin_token,omitempty"`
}

// Store persists the admin session token on the local filesystem.
type Store struct {
	baseDir string
}

// NewStore creates a new session token store.
// If baseDir is empty, uses ~/.funkctl/session/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".funkctl", "session")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &Store{baseDir: baseDir}, nil
}

// Path returns the session file location.
func (s *Store) Path() string {
	return filepath.Join(s.baseDir, "config.json")
}

// Load returns the stored token, or an empty string when none is stored.
func (s *Store) Load() (string, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.AdminToken, nil
}

// Save stores token, replacing any previous one.
func (s *Store) Save(token string) error {
	if err := s.saveConfig(&Config{Version: configVersion, AdminToken: token}); err != nil {
		return err
	}

	log.Debug().Str("path", s.Path()).Msg("session token saved")

	return nil
}

// Clear removes the stored token. Clearing an absent token is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	log.Debug().Str("path", s.Path()).Msg("session token cleared")

	return nil
}

// loadConfig reads the session file. A missing file is an empty session.
func (s *Store) loadConfig() (*Config, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Version: configVersion}, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

// saveConfig writes the session file atomically.
func (s *Store) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	// Write to temp file first
	configPath := s.Path()
	tempPath := configPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session file: %w", err)
	}

	return nil
}
