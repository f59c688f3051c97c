// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs send and regenerate requests against a session.
//
// The Orchestrator owns the request lifecycle: it persists the user turn,
// hands the full history to a StreamClient chosen by provider kind, relays
// the client's events to the caller and persists the assistant reply once
// the stream completes. At most one request runs per session; requests for
// different sessions run in parallel.
//
// Every outcome, including failures detected before any I/O, is delivered
// as the terminal event of the returned Stream.
package chat
