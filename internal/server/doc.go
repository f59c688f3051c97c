// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes sessions, folders and streaming replies over HTTP.
//
// # Endpoints
//
//   - GET    /health                                 - Health check
//   - GET    /api/sessions                           - List sessions (?folder=)
//   - POST   /api/sessions                           - Create a session
//   - GET    /api/sessions/{id}                      - Get a session
//   - PATCH  /api/sessions/{id}                      - Rename, pin, move to folder
//   - DELETE /api/sessions/{id}                      - Delete a session and its messages
//   - GET    /api/sessions/{id}/messages             - Messages, oldest first
//   - GET    /api/sessions/{id}/search?q=            - Search one session
//   - GET    /api/sessions/{id}/pinned               - Pinned messages
//   - GET    /api/sessions/{id}/state                - Request state
//   - GET    /api/sessions/{id}/export?format=       - Export (markdown, html, json, yaml)
//   - POST   /api/sessions/{id}/send                 - Send a message, reply as SSE
//   - POST   /api/sessions/{id}/regenerate           - Regenerate the last reply as SSE
//   - POST   /api/sessions/{id}/cancel               - Cancel the running request
//   - GET    /api/sessions/{id}/ws                   - WebSocket for send/regenerate/cancel
//   - GET    /api/search?q=&limit=                   - Search all sessions
//   - PATCH  /api/messages/{id}                      - Edit content or pin
//   - DELETE /api/messages/{id}                      - Delete a message
//   - GET    /api/folders                            - List folders
//   - POST   /api/folders                            - Create a folder
//   - POST   /api/folders/swap                       - Swap two folders' order
//   - PATCH  /api/folders/{id}                       - Update a folder
//   - DELETE /api/folders/{id}                       - Delete a folder
//   - GET    /api/folders/{id}/sessions              - Sessions in a folder
//
// Search endpoints accept from= and to= as RFC 3339 timestamps or dates.
//
// # Security
//
//   - Optional bearer token with constant-time comparison
//   - Per-IP rate limiting
//   - Security headers on every response
package server
