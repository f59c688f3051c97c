// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders a session and its messages into portable documents.
//
// # Supported Formats
//
//   - Markdown: human-readable with YAML frontmatter
//   - HTML: self-contained page with embedded CSS
//   - JSON: machine-readable, full data model
//   - YAML: machine-readable, full data model
//
// # Usage
//
//	exp, err := export.ForFormat("markdown", nil)
//	data, err := exp.Export(session, messages)
//
// Exporters are pure functions of their input; file handling lives in
// WriteFile.
package export
