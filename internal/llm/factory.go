// Package llm - Provider factory
package llm

import (
	"strings"
	"time"

	"github.com/isjackalive/aifr/internal/config"
)

// New creates a provider instance by name (case-insensitive). openwebui
// without a base URL fails here, before any call is attempted.
func New(name string, cfg *config.Config) (Provider, error) {
	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeoutSeconds * time.Second
	}

	switch strings.ToLower(name) {
	case config.ProviderSherlock:
		return NewSherlockProvider(cfg.APIKey, timeout), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, timeout), nil
	case config.ProviderOpenWebUI:
		if cfg.BaseURL == "" {
			return nil, &config.ConfigError{Msg: "openwebui provider requires base_url in config"}
		}
		return NewOpenWebUIProvider(cfg.APIKey, cfg.BaseURL, timeout), nil
	case config.ProviderBrave:
		return NewBraveProvider(cfg.APIKey, timeout), nil
	default:
		return nil, &config.ConfigError{Msg: "unknown provider: " + name}
	}
}
