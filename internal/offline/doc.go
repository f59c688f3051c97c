// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline decides which provider URLs may be contacted.
//
// Every URL must use http or https. In offline mode only loopback hosts
// are allowed, so conversations never leave the machine; a local Ollama
// keeps working while hosted providers are refused.
//
// # Usage
//
//	if err := offline.ValidateURL(p.BaseURL, cfg.Client.Offline); err != nil {
//		return err
//	}
package offline
