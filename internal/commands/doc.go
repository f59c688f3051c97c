// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the chat REPL.
//
// The package knows nothing about sessions or providers. The REPL registers
// its commands with handlers that close over its own state; this package
// parses input lines, validates arguments, dispatches to the handler and
// offers tab completion for command names and arguments.
//
// # Key Types
//
//   - Registry: registered commands and their aliases
//   - Parser: splits a line into command name and quoted arguments
//   - Completer: tab completion, usable directly as a liner completer
//
// # Usage
//
//	reg := commands.NewRegistry()
//	reg.Register(&commands.Command{
//	    Name:    "/title",
//	    Args:    []commands.ArgDef{{Name: "text", Required: true}},
//	    Handler: func(inv commands.Invocation) error { return rename(inv.RawArgs) },
//	})
//	if commands.IsCommand(line) {
//	    err := reg.Execute(line)
//	}
//
// Completion:
//
//	c := commands.NewCompleter(reg)
//	state.SetCompleter(c.LineCompleter())
package commands
