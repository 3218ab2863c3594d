// Package config loads and validates the aifr configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"

	. "github.com/isjackalive/aifr/internal/logging"
	"github.com/isjackalive/aifr/internal/paths"
)

// Provider names accepted in config and in provider/model overrides.
const (
	ProviderSherlock  = "sherlock"
	ProviderOpenAI    = "openai"
	ProviderOpenWebUI = "openwebui"
	ProviderBrave     = "brave"
)

// Environment variables supplying API keys, one per provider.
const (
	EnvSherlockKey  = "SHERLOCK_API_KEY"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvOpenWebUIKey = "OPENWEBUI_API_KEY"
	EnvBraveKey     = "BRAVE_API_KEY"
)

// DefaultContextLimit is the token budget used when the config doesn't set one.
const DefaultContextLimit = 6000

// DefaultHTTPTimeoutSeconds bounds a single provider call.
const DefaultHTTPTimeoutSeconds = 120

// ConfigError indicates an invalid or incomplete configuration.
// Reported before any remote I/O is attempted.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// CustomAgent is a user-defined agent from the config file.
type CustomAgent struct {
	SystemPrompt string `json:"system_prompt"`
	Model        string `json:"model,omitempty"`
}

// Config is the aifr application configuration, read once at startup and
// treated as immutable for the lifetime of the process.
type Config struct {
	APIKey             string                 `json:"api_key"`
	Provider           string                 `json:"provider"`
	ModelDefault       string                 `json:"model_default"`
	ContextLimit       int                    `json:"context_limit"`
	BaseURL            string                 `json:"base_url,omitempty"`
	ModelAliases       map[string]string      `json:"model_aliases"`
	CustomAgents       map[string]CustomAgent `json:"custom_agents"`
	HTTPTimeoutSeconds int                    `json:"http_timeout_seconds"`
}

func defaults() *Config {
	return &Config{
		Provider:           "",
		ContextLimit:       DefaultContextLimit,
		HTTPTimeoutSeconds: DefaultHTTPTimeoutSeconds,
		ModelAliases:       map[string]string{},
		CustomAgents:       map[string]CustomAgent{},
	}
}

// Load reads <user-config>/aifr/config.json, merges defaults, and fills
// provider and API key from the environment. Neither a missing config file
// nor a missing API key is an error here; Validate reports the missing key
// (callers that never issue a remote call skip Validate).
func Load() (*Config, error) {
	// .env in the working directory is honored when present.
	if err := godotenv.Load(); err == nil {
		L_debug("config: loaded .env")
	}

	cfg := &Config{}

	path, err := paths.ConfigFile()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Unknown fields are ignored by encoding/json.
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Msg: fmt.Sprintf("invalid config file %s: %v", path, err)}
		}
		L_debug("config: loaded", "path", path)
	case os.IsNotExist(err):
		L_debug("config: no config file, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := mergo.Merge(cfg, *defaults()); err != nil {
		return nil, fmt.Errorf("failed to merge config defaults: %w", err)
	}

	cfg.Provider = strings.ToLower(cfg.Provider)
	if cfg.Provider == "" {
		cfg.Provider = inferProvider()
		L_debug("config: provider inferred from environment", "provider", cfg.Provider)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = keyFromEnv(cfg.Provider)
	}

	return cfg, nil
}

// inferProvider picks a provider from which API keys are present in the
// environment. Priority: OPENAI > BRAVE > OPENWEBUI > SHERLOCK.
func inferProvider() string {
	switch {
	case os.Getenv(EnvOpenAIKey) != "":
		return ProviderOpenAI
	case os.Getenv(EnvBraveKey) != "":
		return ProviderBrave
	case os.Getenv(EnvOpenWebUIKey) != "":
		return ProviderOpenWebUI
	default:
		return ProviderSherlock
	}
}

// KeyFor returns the environment-supplied API key for a provider. Used when
// a provider/model override targets a provider other than the configured one.
func KeyFor(provider string) string {
	return keyFromEnv(provider)
}

func keyFromEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return os.Getenv(EnvOpenAIKey)
	case ProviderBrave:
		return os.Getenv(EnvBraveKey)
	case ProviderOpenWebUI:
		return os.Getenv(EnvOpenWebUIKey)
	case ProviderSherlock:
		return os.Getenv(EnvSherlockKey)
	}
	return ""
}

// Validate checks that the config can support a remote call.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderSherlock, ProviderOpenAI, ProviderOpenWebUI, ProviderBrave:
	default:
		return &ConfigError{Msg: fmt.Sprintf("unknown provider %q", c.Provider)}
	}

	if c.Provider == ProviderOpenWebUI && c.BaseURL == "" {
		return &ConfigError{Msg: "openwebui provider requires base_url in config"}
	}

	if c.APIKey == "" {
		return &ConfigError{Msg: fmt.Sprintf("no API key configured for provider %q (set %s or api_key in config.json)",
			c.Provider, envVarFor(c.Provider))}
	}

	return nil
}

func envVarFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return EnvOpenAIKey
	case ProviderBrave:
		return EnvBraveKey
	case ProviderOpenWebUI:
		return EnvOpenWebUIKey
	default:
		return EnvSherlockKey
	}
}
