// Package fileload reads context attachments with a sensitivity guard and a
// size cap. Secrets and keys never leave the machine, whatever the prompt
// says.
package fileload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the attachment size cap.
const MaxFileSize = 5 * 1024 * 1024

// SensitiveFileError indicates the path matches a secret-material pattern.
type SensitiveFileError struct {
	Path    string
	Pattern string
}

func (e *SensitiveFileError) Error() string {
	return fmt.Sprintf("refusing to read sensitive file %s (matches %q)", e.Path, e.Pattern)
}

// OversizeError indicates the file exceeds MaxFileSize.
type OversizeError struct {
	Path string
	Size int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("file %s is too large (%d bytes, limit %d)", e.Path, e.Size, MaxFileSize)
}

// Filename patterns that are never sent to a remote model.
var sensitivePatterns = []string{
	".env", ".env.*", "id_rsa", "id_rsa.*", "id_ed25519", "id_ed25519.*",
	"*.pem", "*.key", "credentials", "credentials.*", "secrets", "secrets.*",
}

// Load reads a file after checking the sensitivity guard and the size cap.
// Returns the content and its size in bytes.
func Load(path string) (string, int, error) {
	if pattern, sensitive := matchSensitive(path); sensitive {
		return "", 0, &SensitiveFileError{Path: path, Pattern: pattern}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return "", 0, &OversizeError{Path: path, Size: info.Size()}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return string(data), len(data), nil
}

// matchSensitive checks the basename against the pattern list and the full
// path for a .ssh directory component.
func matchSensitive(path string) (string, bool) {
	base := strings.ToLower(filepath.Base(path))

	for _, pattern := range sensitivePatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return pattern, true
		}
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".ssh" {
			return ".ssh/", true
		}
	}

	return "", false
}
