// Package paths provides centralized path resolution for aifr.
// This package has NO internal imports (only stdlib) to avoid import cycles.
// All functions return errors to allow callers to log appropriately.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDir = "aifr"

// ConfigDir returns the aifr config directory (<user-config>/aifr).
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// ConfigFile returns the path of the aifr config file.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// CacheDir returns the aifr cache directory (<user-cache>/aifr).
func CacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user cache directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// SessionFile returns the path of a session file. An empty name resolves to
// the default session.json; a non-empty name resolves to
// sessions/<name>.json under the cache directory.
func SessionFile(name string) (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	if name == "" {
		return filepath.Join(dir, "session.json"), nil
	}
	return filepath.Join(dir, "sessions", name+".json"), nil
}
