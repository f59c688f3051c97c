// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/offline"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigrun-chat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// CurrentProvider is the ID of the provider used for new requests.
	CurrentProvider string     `toml:"current_provider" json:"current_provider"`
	Providers       []Provider `toml:"providers" json:"providers"`

	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
	Server  ServerConfig  `toml:"server" json:"server"`
	Client  ClientConfig  `toml:"client" json:"client"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	// Path of the database file (default: ~/.rigrun-chat/chat.db)
	Path string `toml:"path" json:"path"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level"`
}

// ServerConfig controls the local HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`

	// Token, when set, is required as a bearer token on every API request.
	Token string `toml:"token,omitempty" json:"token,omitempty"`

	// RateLimitPerMinute caps requests per client IP (0 = unlimited).
	RateLimitPerMinute int `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
}

// ClientConfig tunes the outbound HTTP clients.
type ClientConfig struct {
	// RequestsPerSecond limits outbound chat requests (0 = unlimited).
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `toml:"burst" json:"burst"`

	ConnectTimeoutSecs        int `toml:"connect_timeout_secs" json:"connect_timeout_secs"`
	ResponseHeaderTimeoutSecs int `toml:"response_header_timeout_secs" json:"response_header_timeout_secs"`

	// Offline refuses every provider that is not on localhost.
	Offline bool `toml:"offline" json:"offline"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Storage: StorageConfig{Path: DefaultDBPath()},
		Log:     LogConfig{Level: "info"},
		Server:  ServerConfig{Addr: "127.0.0.1:8787", RateLimitPerMinute: 120},
		Client: ClientConfig{
			Burst:                     1,
			ConnectTimeoutSecs:        10,
			ResponseHeaderTimeoutSecs: 60,
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the rigrun-chat configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigrun-chat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultDBPath returns the default database location.
func DefaultDBPath() string {
	dir, err := ConfigDir()
	if err != nil {
		return "chat.db"
	}
	return filepath.Join(dir, "chat.db")
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaults.Storage.Path
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Client.Burst == 0 {
		cfg.Client.Burst = defaults.Client.Burst
	}
	if cfg.Client.ConnectTimeoutSecs == 0 {
		cfg.Client.ConnectTimeoutSecs = defaults.Client.ConnectTimeoutSecs
	}
	if cfg.Client.ResponseHeaderTimeoutSecs == 0 {
		cfg.Client.ResponseHeaderTimeoutSecs = defaults.Client.ResponseHeaderTimeoutSecs
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].Kind == "" {
			cfg.Providers[i].Kind = KindOpenAI
		}
	}
}

// =============================================================================
// PROVIDER SELECTION
// =============================================================================

// ProviderByID returns the provider with the given ID.
func (c *Config) ProviderByID(id string) (*Provider, bool) {
	for i := range c.Providers {
		if c.Providers[i].ID == id {
			return &c.Providers[i], true
		}
	}
	return nil, false
}

// CurrentProviderDescriptor returns a copy of the selected provider, or an
// error wrapping model.ErrConfiguration when none is usable.
func (c *Config) CurrentProviderDescriptor() (*Provider, error) {
	if c.CurrentProvider == "" {
		return nil, fmt.Errorf("%w: no current provider selected", model.ErrConfiguration)
	}
	p, ok := c.ProviderByID(c.CurrentProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider %q is not defined", model.ErrConfiguration, c.CurrentProvider)
	}
	cp := *p
	return &cp, nil
}

// SetCurrent selects the provider with the given ID.
func (c *Config) SetCurrent(id string) error {
	if _, ok := c.ProviderByID(id); !ok {
		return fmt.Errorf("provider %q: %w", id, model.ErrNotFound)
	}
	c.CurrentProvider = id
	return nil
}

// UpsertProvider adds p or replaces the provider with the same ID. The first
// provider added becomes current.
func (c *Config) UpsertProvider(p Provider) {
	if p.Kind == "" {
		p.Kind = KindOpenAI
	}
	if existing, ok := c.ProviderByID(p.ID); ok {
		*existing = p
	} else {
		c.Providers = append(c.Providers, p)
	}
	if c.CurrentProvider == "" {
		c.CurrentProvider = p.ID
	}
}

// RemoveProvider deletes a provider. Removing the current provider clears the
// selection.
func (c *Config) RemoveProvider(id string) error {
	for i := range c.Providers {
		if c.Providers[i].ID == id {
			c.Providers = append(c.Providers[:i], c.Providers[i+1:]...)
			if c.CurrentProvider == id {
				c.CurrentProvider = ""
			}
			return nil
		}
	}
	return fmt.Errorf("provider %q: %w", id, model.ErrNotFound)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	seen := make(map[string]bool)
	for i, p := range c.Providers {
		field := fmt.Sprintf("providers[%d]", i)
		if p.ID == "" {
			errs = append(errs, ValidationError{Field: field + ".id", Message: "must not be empty"})
		} else if seen[p.ID] {
			errs = append(errs, ValidationError{Field: field + ".id", Message: fmt.Sprintf("duplicate provider id '%s'", p.ID)})
		}
		seen[p.ID] = true

		switch p.EffectiveKind() {
		case KindOpenAI, KindOllama:
		default:
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("invalid kind '%s', must be one of: openai, ollama", p.Kind),
			})
		}

		if err := offline.ValidateURL(p.BaseURL, false); err != nil {
			errs = append(errs, ValidationError{Field: field + ".base_url", Message: "must be an absolute http(s) URL"})
		}
		if p.ModelID == "" {
			errs = append(errs, ValidationError{Field: field + ".model_id", Message: "must not be empty"})
		}
	}

	if c.CurrentProvider != "" && !seen[c.CurrentProvider] {
		errs = append(errs, ValidationError{
			Field:   "current_provider",
			Message: fmt.Sprintf("unknown provider '%s'", c.CurrentProvider),
		})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	if c.Storage.Path == "" {
		errs = append(errs, ValidationError{Field: "storage.path", Message: "must not be empty"})
	}
	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{Field: "server.addr", Message: "must not be empty"})
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit_per_minute", Message: "must not be negative"})
	}
	if c.Client.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "client.requests_per_second", Message: "must not be negative"})
	}
	if c.Client.Burst < 0 {
		errs = append(errs, ValidationError{Field: "client.burst", Message: "must not be negative"})
	}
	if c.Client.ConnectTimeoutSecs < 0 || c.Client.ResponseHeaderTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "client", Message: "timeouts must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// COPY / DISPLAY
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Providers != nil {
		clone.Providers = make([]Provider, len(c.Providers))
		copy(clone.Providers, c.Providers)
	}
	return &clone
}

// String returns the config as JSON with every API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	for i := range safe.Providers {
		safe.Providers[i] = safe.Providers[i].Redacted()
	}
	if safe.Server.Token != "" {
		safe.Server.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
