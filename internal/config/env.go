// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables recognized by ApplyEnvOverrides.
const (
	EnvProvider = "RIGRUN_CHAT_PROVIDER"
	EnvAPIKey   = "RIGRUN_CHAT_API_KEY"
	EnvBaseURL  = "RIGRUN_CHAT_BASE_URL"
	EnvModel    = "RIGRUN_CHAT_MODEL"
	EnvDB       = "RIGRUN_CHAT_DB"
	EnvLogLevel = "RIGRUN_CHAT_LOG_LEVEL"
	EnvOffline  = "RIGRUN_CHAT_OFFLINE"
)

// envProviderID names the provider synthesized from environment variables
// when the config file defines none.
const envProviderID = "env"

// defaultOpenAIBaseURL is used for a synthesized provider without a base URL.
const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are ignored; variables already
// set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies RIGRUN_CHAT_* environment variables.
//
//   - RIGRUN_CHAT_PROVIDER: selects the current provider by ID
//   - RIGRUN_CHAT_API_KEY, RIGRUN_CHAT_BASE_URL, RIGRUN_CHAT_MODEL: override
//     the current provider's fields; if no provider exists one named "env" is
//     created
//   - RIGRUN_CHAT_DB: overrides storage.path
//   - RIGRUN_CHAT_LOG_LEVEL: overrides log.level
//   - RIGRUN_CHAT_OFFLINE: overrides client.offline (any strconv.ParseBool
//     value; others are ignored)
func (c *Config) ApplyEnvOverrides() {
	if id := os.Getenv(EnvProvider); id != "" {
		c.CurrentProvider = id
	}

	key := os.Getenv(EnvAPIKey)
	baseURL := os.Getenv(EnvBaseURL)
	modelID := os.Getenv(EnvModel)
	if key != "" || baseURL != "" || modelID != "" {
		p, ok := c.ProviderByID(c.CurrentProvider)
		if !ok {
			c.UpsertProvider(Provider{
				ID:      envProviderID,
				Name:    "Environment",
				Kind:    KindOpenAI,
				BaseURL: defaultOpenAIBaseURL,
			})
			c.CurrentProvider = envProviderID
			p, _ = c.ProviderByID(envProviderID)
		}
		if key != "" {
			p.APIKey = key
		}
		if baseURL != "" {
			p.BaseURL = baseURL
		}
		if modelID != "" {
			p.ModelID = modelID
		}
	}

	if path := os.Getenv(EnvDB); path != "" {
		c.Storage.Path = path
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
	if v := os.Getenv(EnvOffline); v != "" {
		if offline, err := strconv.ParseBool(v); err == nil {
			c.Client.Offline = offline
		}
	}
}
