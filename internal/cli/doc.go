// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigrun-chat command line.
//
// Every command goes through the same core the HTTP API uses: storage for
// sessions, messages and folders, and the chat orchestrator for sending and
// regenerating replies.
//
// # Commands
//
//   - chat: interactive REPL with line editing, history and tab completion
//   - sessions: list, show, new, rename, pin, unpin, move, delete
//   - folders: list, new, rename, delete, swap, collapse, expand
//   - search: case-insensitive search in one session or across all
//   - export: write a session as markdown, html, json or yaml
//   - providers: list, add, use, remove, models
//   - serve: run the local HTTP / SSE / WebSocket API
//
// Listing commands accept --json for scripting.
package cli
