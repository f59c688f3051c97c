// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"reflect"
	"testing"
)

func testCompleter() *Completer {
	c := NewCompleter(testRegistry(nil))
	c.SessionsFn = func() []SessionInfo {
		return []SessionInfo{
			{ID: "abc123", Title: "Deploy checklist"},
			{ID: "abd456", Title: "Groceries"},
			{ID: "ffe789", Title: "Release deploy notes"},
		}
	}
	c.ProvidersFn = func() []string { return []string{"openai", "ollama", "groq"} }
	return c
}

func values(completions []Completion) []string {
	var out []string
	for _, comp := range completions {
		out = append(out, comp.Value)
	}
	return out
}

func TestCompleterComplete(t *testing.T) {
	c := testCompleter()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"command prefix", "/op", []string{"/open"}},
		{"alias", "/ex", []string{"/exit"}},
		{"hidden skipped", "/deb", nil},
		{"case-insensitive", "/TI", []string{"/title"}},
		{"session by id", "/open ab", []string{"abc123", "abd456"}},
		{"session by title", "/open deploy", []string{"abc123", "ffe789"}},
		{"provider", "/provider o", []string{"ollama", "openai"}},
		{"provider empty", "/provider ", []string{"groq", "ollama", "openai"}},
		{"free text", "/title x", nil},
		{"past last arg", "/open abc123 x", nil},
		{"unknown command", "/nope x", nil},
		{"not a command", "hello", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := values(c.Complete(tc.input))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Complete(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCompleter_AllCommands(t *testing.T) {
	c := testCompleter()
	got := c.Complete("/")
	// five visible commands plus their aliases minus the hidden one
	names := map[string]bool{}
	for _, comp := range got {
		names[comp.Value] = true
	}
	for _, want := range []string{"/help", "/quit", "/open", "/provider", "/title"} {
		if !names[want] {
			t.Errorf("Complete(/) missing %s: %q", want, values(got))
		}
	}
	if names["/debug"] {
		t.Error("hidden command offered")
	}
}

func TestCompleterLineCompleter(t *testing.T) {
	c := testCompleter()
	complete := c.LineCompleter()

	tests := []struct {
		line string
		want []string
	}{
		{"/pro", []string{"/provider"}},
		{"  /open abc", []string{"  /open abc123"}},
		{"/provider ", []string{"/provider groq", "/provider ollama", "/provider openai"}},
		{"hello", nil},
	}
	for _, tc := range tests {
		got := complete(tc.line)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("complete(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}

	c.ProvidersFn = func() []string { return []string{"my local"} }
	if got := complete("/provider my"); !reflect.DeepEqual(got, []string{`/provider "my local"`}) {
		t.Errorf("values with spaces are quoted: %q", got)
	}
}

func TestCompleterWithoutCallbacks(t *testing.T) {
	c := NewCompleter(testRegistry(nil))
	if got := c.Complete("/open a"); got != nil {
		t.Errorf("no SessionsFn: %q", values(got))
	}
	if got := c.Complete("/provider "); got != nil {
		t.Errorf("no ProvidersFn: %q", values(got))
	}
}

func TestCalculateScore(t *testing.T) {
	if calculateScore("help", "help") <= calculateScore("helper", "help") {
		t.Error("exact match should outrank a longer prefix match")
	}
	if calculateScore("open", "op") <= calculateScore("openai", "op") {
		t.Error("shorter completion should outrank a longer one")
	}
	if calculateScore("Help", "HE") != calculateScore("help", "he") {
		t.Error("score should be case-insensitive")
	}
}

func TestSortCompletions(t *testing.T) {
	completions := []Completion{
		{Value: "b", Score: 10},
		{Value: "a", Score: 10},
		{Value: "c", Score: 50},
	}
	sortCompletions(completions)
	if got := values(completions); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Errorf("sorted = %q", got)
	}
}
