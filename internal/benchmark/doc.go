// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package benchmark measures how fast a configured provider streams.
//
// A run sends a handful of one-turn prompts through the same stream client
// the chat orchestrator uses and records time to first text, total duration
// and throughput in characters per second. Nothing is written to the
// session database.
//
// # Usage
//
//	runner := benchmark.NewRunner(client)
//	result := runner.Run(ctx, provider, benchmark.GetQuickTestSuite())
//	fmt.Println(result.Summary())
package benchmark
