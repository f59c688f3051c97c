// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"

	"github.com/jeranaias/rigrun-chat/internal/util"
)

// maxCompletions bounds what a single Tab press offers.
const maxCompletions = 20

// Completion is a single completion suggestion.
type Completion struct {
	// Value is the text inserted for this completion
	Value string

	// Display is what the completion list shows
	Display string

	// Description is shown next to the suggestion
	Description string

	// Score orders suggestions (higher is better)
	Score int
}

// SessionInfo is what session completion needs to know about a session.
type SessionInfo struct {
	ID    string
	Title string
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// Callbacks for dynamic completion, set by the REPL
	SessionsFn  func() []SessionInfo // Returns recent sessions
	ProvidersFn func() []string      // Returns configured provider IDs
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{
		registry: registry,
	}
}

// Complete returns completions for the last token of input.
func (c *Completer) Complete(input string) []Completion {
	if !strings.HasPrefix(strings.TrimLeft(input, " "), "/") {
		return nil
	}
	input = strings.TrimLeft(input, " ")

	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return c.completeCommands("")
	}

	// Still typing the command name
	if len(parts) == 1 && !endsWithSpace(input) {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}

	argIndex, partial := len(parts)-2, parts[len(parts)-1]
	if endsWithSpace(input) {
		argIndex, partial = len(parts)-1, ""
	}
	return c.completeArg(cmd, argIndex, partial)
}

// LineCompleter adapts Complete to liner's line completer: every candidate
// is the whole line with its last token replaced.
func (c *Completer) LineCompleter() func(line string) []string {
	return func(line string) []string {
		completions := c.Complete(line)
		if len(completions) == 0 {
			return nil
		}

		head := line
		if !endsWithSpace(line) {
			if i := strings.LastIndexFunc(line, isSpace); i >= 0 {
				head = line[:i+1]
			} else {
				head = ""
			}
		}

		lines := make([]string, 0, len(completions))
		for _, comp := range completions {
			value := comp.Value
			if strings.ContainsAny(value, " \t") {
				value = `"` + value + `"`
			}
			lines = append(lines, head+value)
		}
		return lines
	}
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

// completeCommands returns completions for command names.
func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion

	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}

		if strings.HasPrefix(strings.ToLower(cmd.Name), partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
			continue
		}

		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(strings.ToLower(alias), partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10, // Slightly lower score for aliases
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

// completeArg returns completions for a command argument.
func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	arg := cmd.Args[argIndex]

	switch arg.Type {
	case ArgTypeSession:
		return c.completeSessions(partial)
	case ArgTypeProvider:
		if c.ProvidersFn == nil {
			return nil
		}
		return completeFromList(c.ProvidersFn(), partial)
	case ArgTypeEnum:
		return completeFromList(arg.Values, partial)
	case ArgTypeString:
		if arg.Completer != nil {
			return completeFromList(arg.Completer(), partial)
		}
		return nil
	default:
		return nil
	}
}

// completeSessions matches session IDs by prefix and titles by substring.
func (c *Completer) completeSessions(partial string) []Completion {
	if c.SessionsFn == nil {
		return nil
	}

	var completions []Completion
	partial = strings.ToLower(partial)

	for _, session := range c.SessionsFn() {
		idMatch := strings.HasPrefix(strings.ToLower(session.ID), partial)
		titleMatch := strings.Contains(strings.ToLower(session.Title), partial)
		if !idMatch && !titleMatch {
			continue
		}

		score := calculateScore(session.ID, partial)
		if titleMatch && !idMatch {
			score -= 5
		}

		display := session.ID
		if session.Title != "" {
			display = session.ID + " - " + util.TruncateRunes(session.Title, 30)
		}

		completions = append(completions, Completion{
			Value:   session.ID,
			Display: display,
			Score:   score,
		})
	}

	sortCompletions(completions)
	if len(completions) > maxCompletions {
		completions = completions[:maxCompletions]
	}
	return completions
}

// completeFromList returns completions from a list of strings.
func completeFromList(values []string, partial string) []Completion {
	var completions []Completion

	partial = strings.ToLower(partial)

	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   calculateScore(value, partial),
			})
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// calculateScore calculates a match score for completion ranking.
// Higher score = better match.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100

	if value == partial {
		return score + 100
	}

	if strings.HasPrefix(value, partial) {
		score += 50
		// Bonus for shorter completions
		score += 20 - len(value)
	}

	score -= len(value) / 2

	return score
}

// sortCompletions sorts completions by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.SliceStable(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

func endsWithSpace(s string) bool {
	return s != "" && isSpace(rune(s[len(s)-1]))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
