// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud streams chat completions from OpenAI-compatible endpoints
// (OpenAI, OpenRouter, vLLM, LM Studio, llama.cpp server, ...).
//
// # Key Types
//
//   - Client: stream client for POST {baseURL}/chat/completions with SSE
//   - SSEReader: Server-Sent Events parser
//   - StreamChunk: one decoded completion delta
//
// # Usage
//
//	client := cloud.New(cloud.WithRateLimit(2, 1))
//	err := client.Stream(ctx, provider, history, func(ev model.StreamEvent) {
//	    fmt.Print(ev.Content)
//	})
//
// # Security
//
// API keys are never logged; log lines carry a SHA-256 fingerprint instead,
// and any error text that would echo the key is redacted. All requests use
// TLS 1.2+.
package cloud
