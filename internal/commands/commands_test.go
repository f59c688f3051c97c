// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/help", true},
		{"/open abc", true},
		{"  /help", true},
		{"hello", false},
		{"hello /help", false},
		{"", false},
		{"/", true},
	}

	for _, tc := range tests {
		got := IsCommand(tc.input)
		if got != tc.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestExtractCommandName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/help", "/help"},
		{"/open abc", "/open"},
		{"/title my chat", "/title"},
		{"  /help  ", "/help"},
		{"hello", ""},
		{"/", "/"},
	}

	for _, tc := range tests {
		got := ExtractCommandName(tc.input)
		if got != tc.want {
			t.Errorf("ExtractCommandName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"one", []string{"one"}},
		{"one two", []string{"one", "two"}},
		{`"my session"`, []string{"my session"}},
		{`'my session'`, []string{"my session"}},
		{`a  "b c"   d`, []string{"a", "b c", "d"}},
		{`"say \"hi\""`, []string{`say "hi"`}},
		{"café naïve", []string{"café", "naïve"}},
		{`"日本 語"`, []string{"日本 語"}},
		{"", nil},
	}

	for _, tc := range tests {
		got := ParseArgs(tc.input)
		if strings.Join(got, "|") != strings.Join(tc.want, "|") || len(got) != len(tc.want) {
			t.Errorf("ParseArgs(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParser_Parse(t *testing.T) {
	r := testRegistry(nil)
	p := NewParser(r)

	res := p.Parse("  /TITLE  Weekly   plan  ")
	if !res.IsCommand || res.Command == nil || res.Command.Name != "/title" {
		t.Fatalf("Parse = %+v, want /title", res)
	}
	if res.CommandName != "/TITLE" {
		t.Errorf("CommandName = %q", res.CommandName)
	}
	if res.RawArgs != "Weekly   plan" {
		t.Errorf("RawArgs = %q, want original spacing", res.RawArgs)
	}
	if len(res.Args) != 2 {
		t.Errorf("Args = %q", res.Args)
	}

	res = p.Parse("hello")
	if res.IsCommand || res.Command != nil {
		t.Errorf("Parse(hello) = %+v", res)
	}

	res = p.Parse("/nope x")
	if !res.IsCommand || res.Command != nil || res.CommandName != "/nope" {
		t.Errorf("Parse(/nope) = %+v", res)
	}
}

func TestValidateArgs(t *testing.T) {
	cmd := &Command{
		Name: "/theme",
		Args: []ArgDef{
			{Name: "name", Required: true, Type: ArgTypeEnum, Values: []string{"light", "dark"}},
		},
	}

	if err := ValidateArgs(cmd, []string{"DARK"}); err != nil {
		t.Errorf("enum match is case-insensitive: %v", err)
	}

	var verr *ValidationError
	if err := ValidateArgs(cmd, nil); !errors.As(err, &verr) || verr.Message != "required argument missing" {
		t.Errorf("missing arg: err = %v", err)
	}
	if err := ValidateArgs(cmd, []string{"blue"}); !errors.As(err, &verr) || verr.Got != "blue" {
		t.Errorf("bad enum: err = %v", err)
	}
	if err := ValidateArgs(nil, nil); err != nil {
		t.Errorf("nil command: %v", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Command:  "/theme",
		Arg:      "name",
		Message:  "invalid value",
		Got:      "blue",
		Expected: "light, dark",
	}
	want := "/theme: invalid value for argument 'name' (got: blue) - expected: light, dark"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

// testRegistry registers a small command set. calls records each invocation.
func testRegistry(calls *[]Invocation) *Registry {
	record := func(inv Invocation) error {
		if calls != nil {
			*calls = append(*calls, inv)
		}
		return nil
	}
	r := NewRegistry()
	r.Register(&Command{Name: "/help", Aliases: []string{"/h"}, Category: "General", Handler: record})
	r.Register(&Command{Name: "/quit", Aliases: []string{"/q", "/exit"}, Category: "General", Handler: func(Invocation) error { return ErrQuit }})
	r.Register(&Command{
		Name:     "/open",
		Category: "Session",
		Args:     []ArgDef{{Name: "id", Required: true, Type: ArgTypeSession}},
		Handler:  record,
	})
	r.Register(&Command{
		Name:     "/provider",
		Category: "Provider",
		Args:     []ArgDef{{Name: "id", Type: ArgTypeProvider}},
		Handler:  record,
	})
	r.Register(&Command{Name: "/title", Category: "Session", Args: []ArgDef{{Name: "text", Required: true}}, Handler: record})
	r.Register(&Command{Name: "/debug", Hidden: true, Handler: record})
	return r
}

func TestRegistry_Get(t *testing.T) {
	r := testRegistry(nil)

	tests := []struct {
		name string
		want string
	}{
		{"/help", "/help"},
		{"/h", "/help"},
		{"/HELP", "/help"},
		{"/exit", "/quit"},
		{"/nope", ""},
	}
	for _, tc := range tests {
		cmd := r.Get(tc.name)
		got := ""
		if cmd != nil {
			got = cmd.Name
		}
		if got != tc.want {
			t.Errorf("Get(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRegistry_All(t *testing.T) {
	r := testRegistry(nil)
	all := r.All()
	if len(all) != 6 {
		t.Fatalf("All() returned %d commands, want 6", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name > all[i].Name {
			t.Errorf("All() not sorted: %s before %s", all[i-1].Name, all[i].Name)
		}
	}
}

func TestRegistry_ByCategory(t *testing.T) {
	r := testRegistry(nil)
	r.Register(&Command{Name: "/misc"})
	groups := r.ByCategory()

	if len(groups["Session"]) != 2 || len(groups["General"]) != 2 {
		t.Errorf("ByCategory = %v", groups)
	}
	if len(groups["Other"]) != 1 {
		t.Errorf("uncategorized commands should land in Other: %v", groups["Other"])
	}
	for _, cmds := range groups {
		for _, cmd := range cmds {
			if cmd.Hidden {
				t.Errorf("hidden command %s listed", cmd.Name)
			}
		}
	}
}

func TestRegistry_Execute(t *testing.T) {
	var calls []Invocation
	r := testRegistry(&calls)

	if err := r.Execute(`/open  "abc def"`); err != nil {
		t.Fatal(err)
	}
	if err := r.Execute("/H"); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 2 {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].Arg(0) != "abc def" || calls[0].RawArgs != `"abc def"` {
		t.Errorf("open invocation = %+v", calls[0])
	}
	if calls[0].Arg(1) != "" {
		t.Errorf("Arg past the end = %q", calls[0].Arg(1))
	}
	if calls[1].Name != "/h" {
		t.Errorf("alias invocation name = %q", calls[1].Name)
	}

	if err := r.Execute("/q"); !errors.Is(err, ErrQuit) {
		t.Errorf("/q: err = %v, want ErrQuit", err)
	}

	var unknown *UnknownCommandError
	if err := r.Execute("/bogus now"); !errors.As(err, &unknown) || unknown.Name != "/bogus" {
		t.Errorf("/bogus: err = %v", err)
	} else if !strings.Contains(err.Error(), "unknown command /bogus") {
		t.Errorf("error text = %q", err.Error())
	}

	var verr *ValidationError
	if err := r.Execute("/open"); !errors.As(err, &verr) || verr.Arg != "id" {
		t.Errorf("/open without id: err = %v", err)
	}
	if len(calls) != 2 {
		t.Errorf("handler ran despite errors: %+v", calls)
	}
}
