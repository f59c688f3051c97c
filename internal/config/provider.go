// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"crypto/sha256"
	"encoding/hex"
)

// Provider kinds. The kind selects which stream client serves the provider.
const (
	KindOpenAI = "openai"
	KindOllama = "ollama"
)

// Provider describes one chat completion endpoint.
type Provider struct {
	ID      string `toml:"id" json:"id"`
	Name    string `toml:"name" json:"name"`
	Kind    string `toml:"kind,omitempty" json:"kind,omitempty"`
	BaseURL string `toml:"base_url" json:"base_url"`
	APIKey  string `toml:"api_key,omitempty" json:"api_key,omitempty"`
	ModelID string `toml:"model_id" json:"model_id"`
}

// EffectiveKind returns Kind, defaulting to KindOpenAI.
func (p Provider) EffectiveKind() string {
	if p.Kind == "" {
		return KindOpenAI
	}
	return p.Kind
}

// DisplayName returns Name, falling back to ID.
func (p Provider) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// KeyFingerprint identifies the API key in logs without revealing it.
func (p Provider) KeyFingerprint() string {
	if p.APIKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(p.APIKey))
	return hex.EncodeToString(h[:4])
}

// Redacted returns a copy safe to print or serialize.
func (p Provider) Redacted() Provider {
	if p.APIKey != "" {
		p.APIKey = "[REDACTED]"
	}
	return p
}
