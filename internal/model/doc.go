// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the domain types shared by storage, the chat
// orchestrator and the outer surfaces (CLI, HTTP API, exporters).
//
// # Key Types
//
//   - Session: a conversation with title, timestamps, pin flag and folder
//   - Message: a single persisted user or assistant turn
//   - Folder: a flat, manually ordered grouping of sessions
//   - Turn: the role/content pair sent to a provider
//   - StreamEvent: Text, Done or Error, delivered while a reply streams
//
// # Errors
//
// Sentinel errors (ErrNotFound, ErrBusy, ...) and the typed TransportError,
// APIError and UnknownError describe every failure the core can report.
// ErrorEvent turns any of them into the terminal Error event.
//
//	ev := model.ErrorEvent(err)
//	if ev.Transient {
//	    // caller may retry
//	}
package model
