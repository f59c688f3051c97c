// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama streams chat replies from an Ollama server.
//
// Ollama's /api/chat endpoint streams newline-delimited JSON objects rather
// than Server-Sent Events. Client adapts that stream to the same Text*, then
// Done or Error contract used by the cloud client, so providers of kind
// "ollama" plug into the orchestrator unchanged.
//
// # Usage
//
//	client := ollama.NewClient()
//	err := client.Stream(ctx, provider, history, emit)
//	models, err := client.ListModels(ctx, provider)
package ollama
