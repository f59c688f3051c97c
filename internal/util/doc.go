// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across rigrun-chat.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writes (config saves, exports)
//   - TruncateRunes / SingleLine: rune-safe shortening for titles and previews
//   - PadWidth: display-width padding for terminal tables (CJK aware)
//   - Clock / MonotonicClock: strictly increasing timestamps for persisted rows
//
// # Usage
//
//	clock := util.NewMonotonicClock()
//	createdAt := clock.Now()
//
//	title := util.TruncateRunes(util.SingleLine(firstPrompt), 40)
package util
