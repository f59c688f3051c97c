// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"sort"
	"strings"
)

// ErrQuit is returned by a handler to ask the REPL to exit.
var ErrQuit = errors.New("quit")

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/open <id>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler is the function that executes the command
	Handler Handler

	// Hidden commands don't appear in help or completion
	Hidden bool

	// Category for grouping in help display
	Category string
}

// Handler executes a command.
type Handler func(inv Invocation) error

// Invocation is one call of a command.
type Invocation struct {
	// Name is the name the user typed, lowercased. It may be an alias.
	Name string

	// Args are the parsed, unquoted arguments
	Args []string

	// RawArgs is everything after the command name, trimmed
	RawArgs string
}

// Arg returns argument i, or "" when it was not given.
func (inv Invocation) Arg(i int) string {
	if i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	// Name of the argument
	Name string

	// Required indicates if the argument must be provided
	Required bool

	// Type determines completion behavior
	Type ArgType

	// Description explains the argument
	Description string

	// Values for enum types
	Values []string

	// Completer for custom completion of string arguments
	Completer func() []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString   ArgType = iota // Free-form string
	ArgTypeSession                 // Session ID from the database
	ArgTypeProvider                // Configured provider ID
	ArgTypeEnum                    // One of predefined values
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
}

// Register adds a command to the registry. Names are case-insensitive; a
// later registration replaces an earlier one with the same name.
func (r *Registry) Register(cmd *Command) {
	r.commands[strings.ToLower(cmd.Name)] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[strings.ToLower(alias)] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory returns visible commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "Other"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// Execute parses input and runs the matching command.
func (r *Registry) Execute(input string) error {
	res := NewParser(r).Parse(input)
	if !res.IsCommand {
		return &UnknownCommandError{Name: res.RawInput}
	}
	if res.Command == nil {
		return &UnknownCommandError{Name: res.CommandName}
	}
	if err := ValidateArgs(res.Command, res.Args); err != nil {
		return err
	}
	if res.Command.Handler == nil {
		return nil
	}
	return res.Command.Handler(Invocation{
		Name:    strings.ToLower(res.CommandName),
		Args:    res.Args,
		RawArgs: res.RawArgs,
	})
}

// UnknownCommandError reports a command name that is not registered.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return "unknown command " + e.Name + " (try /help)"
}
