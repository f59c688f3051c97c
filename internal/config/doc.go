// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// rigrun-chat.
//
// The configuration lives in ~/.rigrun-chat/config.toml and holds the list of
// providers (OpenAI-compatible or Ollama endpoints), the current provider
// selection, the database path and the local API server settings.
//
// # Precedence
//
//   - Built-in defaults
//   - ~/.rigrun-chat/config.toml
//   - .env file in the working directory (loaded into the environment)
//   - RIGRUN_CHAT_* environment variables
//
// # Usage
//
//	store := config.NewFileStore("")
//	cfg, err := store.Load()
//	provider, err := cfg.CurrentProviderDescriptor()
package config
