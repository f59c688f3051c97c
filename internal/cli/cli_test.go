// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/benchmark"
	"github.com/jeranaias/rigrun-chat/internal/chat"
	"github.com/jeranaias/rigrun-chat/internal/commands"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/export"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type cliEnv struct {
	dir        string
	configPath string
	dbPath     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	for _, k := range []string{config.EnvProvider, config.EnvAPIKey, config.EnvBaseURL, config.EnvModel, config.EnvDB, config.EnvLogLevel, config.EnvOffline} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	return &cliEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.toml"),
		dbPath:     filepath.Join(dir, "chat.db"),
	}
}

// run executes one command line and returns its stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runApp(t, &app{}, args...)
}

// runApp is run with a preset app, for stub stream clients.
func (e *cliEnv) runApp(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", e.configPath, "--db", e.dbPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func (e *cliEnv) decode(t *testing.T, v any, args ...string) {
	t.Helper()
	out := e.mustRun(t, args...)
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("%v: invalid JSON %q: %v", args, out, err)
	}
}

// seed writes a session with alternating user/assistant messages.
func (e *cliEnv) seed(t *testing.T, title string, contents ...string) model.Session {
	t.Helper()
	db, err := storage.Open(e.dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	sess, err := db.Sessions().Create(ctx, "", title)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	for i, c := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		if _, err := db.Messages().Append(ctx, model.NewMessage(sess.ID, role, c, time.Time{})); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return sess
}

// =============================================================================
// SESSIONS / FOLDERS
// =============================================================================

func TestSessionsCommands(t *testing.T) {
	env := newCLIEnv(t)

	id := strings.TrimSpace(env.mustRun(t, "sessions", "new", "Plans"))
	if id == "" {
		t.Fatal("sessions new printed no id")
	}
	if out := env.mustRun(t, "sessions", "list"); !strings.Contains(out, "Plans") || !strings.Contains(out, id) {
		t.Errorf("list output missing session:\n%s", out)
	}

	env.mustRun(t, "sessions", "rename", id, "Trip", "to", "Rome")
	env.mustRun(t, "sessions", "pin", id)
	env.mustRun(t, "sessions", "new", "Other")

	var sessions []model.Session
	env.decode(t, &sessions, "sessions", "list", "--json")
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != id || !sessions[0].IsPinned || sessions[0].Title != "Trip to Rome" {
		t.Errorf("first session = %+v, want pinned %q", sessions[0], "Trip to Rome")
	}

	if _, err := env.run(t, "sessions", "rename", id, " "); GetExitCode(err) != ExitUsageError {
		t.Errorf("empty title: exit code %d, want %d (%v)", GetExitCode(err), ExitUsageError, err)
	}

	if out := env.mustRun(t, "sessions", "delete", id); !strings.Contains(out, "deleted session") {
		t.Errorf("delete output = %q", out)
	}
	_, err := env.run(t, "sessions", "show", id)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("show deleted session: err = %v, want ErrNotFound", err)
	}
	if code := GetExitCode(err); code != ExitNotFoundError {
		t.Errorf("exit code = %d, want %d", code, ExitNotFoundError)
	}
}

func TestSessionsShow(t *testing.T) {
	env := newCLIEnv(t)
	sess := env.seed(t, "Greeting", "Hi", "Hello!")

	out := env.mustRun(t, "sessions", "show", sess.ID)
	for _, want := range []string{"Greeting", "Hi", "Hello!", "Assistant"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	var doc struct {
		Session  model.Session   `json:"session"`
		Messages []model.Message `json:"messages"`
	}
	env.decode(t, &doc, "sessions", "show", sess.ID, "--json")
	if len(doc.Messages) != 2 || doc.Messages[1].Role != model.RoleAssistant {
		t.Errorf("messages = %+v", doc.Messages)
	}
}

func TestFoldersCommands(t *testing.T) {
	env := newCLIEnv(t)
	sess := strings.TrimSpace(env.mustRun(t, "sessions", "new", "Filed"))
	a := strings.TrimSpace(env.mustRun(t, "folders", "new", "Work", "--color", "#3b82f6"))
	b := strings.TrimSpace(env.mustRun(t, "folders", "new", "Home"))

	env.mustRun(t, "folders", "swap", a, b)
	var folders []model.Folder
	env.decode(t, &folders, "folders", "list", "--json")
	if len(folders) != 2 || folders[0].Name != "Home" || folders[1].Name != "Work" {
		t.Fatalf("folders after swap = %+v", folders)
	}

	env.mustRun(t, "sessions", "move", sess, a)
	env.mustRun(t, "folders", "collapse", a)
	if out := env.mustRun(t, "folders", "list"); !strings.Contains(out, "1 sessions") || !strings.Contains(out, "(collapsed)") {
		t.Errorf("folder list:\n%s", out)
	}

	var filed []model.Session
	env.decode(t, &filed, "sessions", "list", "--folder", a, "--json")
	if len(filed) != 1 || filed[0].ID != sess {
		t.Errorf("folder sessions = %+v", filed)
	}

	if _, err := env.run(t, "folders", "order", a, fmt.Sprint(folders[0].SortOrder)); !errors.Is(err, model.ErrDuplicateSortOrder) {
		t.Errorf("order onto taken position: err = %v", err)
	}

	env.mustRun(t, "folders", "delete", a)
	var unfiled []model.Session
	env.decode(t, &unfiled, "sessions", "list", "--folder", "", "--json")
	if len(unfiled) != 1 {
		t.Errorf("unfiled sessions after folder delete = %d, want 1", len(unfiled))
	}

	if _, err := env.run(t, "folders", "expand", a); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expand deleted folder: err = %v", err)
	}
}

// =============================================================================
// SEARCH / EXPORT
// =============================================================================

func TestSearchCommand(t *testing.T) {
	env := newCLIEnv(t)
	first := env.seed(t, "One", "Deploy the API", "Deployed.")
	env.seed(t, "Two", "unrelated", "DEPLOY again")

	var hits []model.Message
	env.decode(t, &hits, "search", "deploy", "--json")
	if len(hits) != 3 {
		t.Fatalf("global hits = %d, want 3", len(hits))
	}
	if hits[0].Content != "DEPLOY again" {
		t.Errorf("newest hit = %q, want %q", hits[0].Content, "DEPLOY again")
	}

	env.decode(t, &hits, "search", "deploy", "--limit", "1", "--json")
	if len(hits) != 1 {
		t.Errorf("limited hits = %d, want 1", len(hits))
	}

	env.decode(t, &hits, "search", "DEPLOY", "--session", first.ID, "--json")
	if len(hits) != 2 || hits[0].Content != "Deploy the API" {
		t.Errorf("session hits = %+v", hits)
	}

	env.decode(t, &hits, "search", "deploy", "--to", "2000-01-01", "--json")
	if len(hits) != 0 {
		t.Errorf("hits before 2000 = %d", len(hits))
	}

	if _, err := env.run(t, "search", "deploy", "--from", "last week"); GetExitCode(err) != ExitUsageError {
		t.Errorf("bad --from: err = %v", err)
	}
	if out := env.mustRun(t, "search", "nothing-matches"); !strings.Contains(out, "No matches.") {
		t.Errorf("empty search output = %q", out)
	}
}

func TestExportCommand(t *testing.T) {
	env := newCLIEnv(t)
	sess := env.seed(t, "Exported", "Hi", "Hello")

	var doc export.Document
	env.decode(t, &doc, "export", sess.ID, "--format", "json", "--stdout")
	if doc.Session.ID != sess.ID || len(doc.Messages) != 2 {
		t.Errorf("document = %+v", doc)
	}

	outDir := filepath.Join(env.dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	out := env.mustRun(t, "export", sess.ID, "--format", "md", "--dir", outDir)
	if !strings.Contains(out, "exported 2 messages") {
		t.Errorf("export output = %q", out)
	}
	matches, _ := filepath.Glob(filepath.Join(outDir, "chat_Exported_*.md"))
	if len(matches) != 1 {
		t.Fatalf("exported files = %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# Exported") {
		t.Errorf("markdown export missing title:\n%s", data)
	}

	if _, err := env.run(t, "export", sess.ID, "--format", "pdf"); GetExitCode(err) != ExitUsageError {
		t.Errorf("pdf export: err = %v", err)
	}
}

// =============================================================================
// PROVIDERS
// =============================================================================

func TestProvidersCommands(t *testing.T) {
	tags := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"models":[{"name":"llama3.2","size":2019393189},{"name":"qwen2.5:14b","size":8988124069}]}`)
	}))
	defer tags.Close()

	env := newCLIEnv(t)
	env.mustRun(t, "providers", "add", "local", "--kind", "ollama", "--base-url", tags.URL, "--model", "llama3.2")
	env.mustRun(t, "providers", "add", "cloud", "--base-url", "https://api.example.com/v1",
		"--model", "gpt-4o-mini", "--api-key", "sk-secret", "--use")

	var listed struct {
		Current   string            `json:"current"`
		Providers []config.Provider `json:"providers"`
	}
	env.decode(t, &listed, "providers", "list", "--json")
	if listed.Current != "cloud" || len(listed.Providers) != 2 {
		t.Fatalf("providers = %+v", listed)
	}
	for _, p := range listed.Providers {
		if strings.Contains(p.APIKey, "sk-secret") {
			t.Errorf("api key leaked in listing: %+v", p)
		}
	}

	out := env.mustRun(t, "providers", "models", "local")
	if !strings.Contains(out, "llama3.2") || !strings.Contains(out, "qwen2.5:14b") {
		t.Errorf("models output:\n%s", out)
	}
	if _, err := env.run(t, "providers", "models"); GetExitCode(err) != ExitUsageError {
		t.Errorf("models on openai provider: err = %v", err)
	}

	if _, err := env.run(t, "providers", "use", "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("use missing: err = %v", err)
	}
	env.mustRun(t, "providers", "use", "local")
	env.mustRun(t, "providers", "remove", "local")

	cfg, err := config.NewFileStore(env.configPath).Load()
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if cfg.CurrentProvider != "" || len(cfg.Providers) != 1 {
		t.Errorf("config after remove = current %q, %d providers", cfg.CurrentProvider, len(cfg.Providers))
	}
}

func TestProvidersBench(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "providers", "add", "a", "--base-url", "http://a.invalid/v1", "--model", "m-a", "--use")
	env.mustRun(t, "providers", "add", "b", "--base-url", "http://b.invalid/v1", "--model", "m-b")

	var prompts []string
	reg := chat.NewRegistry()
	reg.Register(config.KindOpenAI, streamFunc(func(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
		prompts = append(prompts, p.ID+":"+history[0].Content)
		emit(model.TextEvent("pong"))
		emit(model.DoneEvent())
		return nil
	}))

	out, err := env.runApp(t, &app{registry: reg}, "providers", "bench", "--prompt", "ping", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var result benchmark.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if result.ProviderID != "a" || result.PassedTests != 1 || result.Tests[0].Response != "pong" {
		t.Errorf("result = %+v", result)
	}

	prompts = nil
	out, err = env.runApp(t, &app{registry: reg}, "providers", "bench", "a", "b", "--prompt", "ping")
	if err != nil {
		t.Fatal(err)
	}
	if len(prompts) != 2 || prompts[0] != "a:ping" || prompts[1] != "b:ping" {
		t.Errorf("prompts = %q", prompts)
	}
	for _, want := range []string{"a / m-a", "b / m-b", "Providers tested: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := env.runApp(t, &app{registry: reg}, "providers", "bench", "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("bench nope: err = %v", err)
	}
}

// =============================================================================
// CHAT REPL
// =============================================================================

type scriptedReader struct {
	lines   []string
	history []string
}

func (s *scriptedReader) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedReader) AppendHistory(item string) {
	s.history = append(s.history, item)
}

type streamFunc func(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error

func (f streamFunc) Stream(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
	return f(ctx, p, history, emit)
}

func newTestREPL(t *testing.T, client chat.StreamClient) (*repl, *bytes.Buffer) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	reg := chat.NewRegistry()
	reg.Register("stub", client)
	orch := chat.New(db, reg)
	t.Cleanup(orch.Close)

	provider := config.Provider{ID: "stub", Kind: "stub", BaseURL: "http://stub", ModelID: "stub-1"}
	cfg := config.Default()
	cfg.Providers = []config.Provider{provider}
	cfg.CurrentProvider = "stub"

	var out bytes.Buffer
	r := &repl{ctx: context.Background(), out: &out, db: db, orch: orch, cfg: cfg, call: chat.CallFor(cfg)}
	if err := r.open(""); err != nil {
		t.Fatal(err)
	}
	return r, &out
}

func TestREPL_Conversation(t *testing.T) {
	replies := 0
	r, out := newTestREPL(t, streamFunc(func(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
		replies++
		emit(model.TextEvent(fmt.Sprintf("reply %d to %d turns", replies, len(history))))
		emit(model.DoneEvent())
		return nil
	}))

	in := &scriptedReader{lines: []string{
		"Hello there, how are you?",
		"",
		"/regen",
		"/search REPLY",
		"/pin",
		"/bogus",
		"/quit",
		"never read",
	}}
	if err := r.run(in); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{"reply 1 to 1 turns", "reply 2 to 1 turns", "1 result(s)", "unknown command /bogus"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if len(in.lines) != 1 {
		t.Errorf("REPL kept reading after /quit")
	}
	if len(in.history) != 6 {
		t.Errorf("history = %v, want 6 entries", in.history)
	}

	sess, err := r.db.Sessions().Get(context.Background(), r.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Title != "Hello there, how are you?" {
		t.Errorf("title = %q, want the first prompt", sess.Title)
	}
	if !sess.IsPinned {
		t.Error("session not pinned")
	}
	msgs, _ := r.db.Messages().ListBySession(context.Background(), sess.ID)
	if len(msgs) != 2 || msgs[1].Content != "reply 2 to 1 turns" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestREPL_NewAndOpen(t *testing.T) {
	r, _ := newTestREPL(t, streamFunc(func(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
		emit(model.DoneEvent())
		return nil
	}))
	first := r.session.ID

	if _, err := r.handle("/new Side quest"); err != nil {
		t.Fatal(err)
	}
	if r.session.ID == first || r.session.Title != "Side quest" {
		t.Errorf("after /new session = %+v", r.session)
	}
	if _, err := r.handle("/open " + first); err != nil {
		t.Fatal(err)
	}
	if r.session.ID != first {
		t.Errorf("after /open session = %s, want %s", r.session.ID, first)
	}
	if id, _ := r.activeID.Load().(string); id != first {
		t.Errorf("activeID = %q, want %q", id, first)
	}
	if _, err := r.handle("/open missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("/open missing: err = %v", err)
	}
	if _, err := r.handle("/provider nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("/provider nope: err = %v", err)
	}
}

func TestREPL_StreamFailure(t *testing.T) {
	apiErr := &model.APIError{StatusCode: 503, Code: "server_error", Message: "overloaded"}
	r, out := newTestREPL(t, streamFunc(func(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
		emit(model.TextEvent("partial"))
		emit(model.ErrorEvent(apiErr))
		return apiErr
	}))

	err := r.send("Hi")
	var got *model.APIError
	if !errors.As(err, &got) || got.Code != "server_error" {
		t.Fatalf("send err = %v, want APIError server_error", err)
	}
	if !strings.Contains(out.String(), "temporary") {
		t.Errorf("transient hint missing:\n%s", out.String())
	}
	if r.session.Title != model.DefaultSessionTitle {
		t.Errorf("failed first exchange renamed the session to %q", r.session.Title)
	}

	_, err = r.handle("/regen")
	if !errors.Is(err, model.ErrNoAssistantMessage) {
		t.Errorf("/regen without reply: err = %v", err)
	}
}

func TestREPL_RetryHint(t *testing.T) {
	apiErr := &model.APIError{StatusCode: 503, Code: "server_error", Message: "overloaded"}
	fail := streamFunc(func(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
		emit(model.TextEvent("partial"))
		emit(model.ErrorEvent(apiErr))
		return apiErr
	})
	calls := 0
	r, out := newTestREPL(t, streamFunc(func(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
		calls++
		if calls > 1 {
			return fail(ctx, p, history, emit)
		}
		emit(model.TextEvent("first reply"))
		emit(model.DoneEvent())
		return nil
	}))
	if err := r.send("Hi"); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := r.send("And then?"); err == nil {
		t.Fatal("send succeeded, want failure")
	}
	if !strings.Contains(out.String(), "resend your message") || strings.Contains(out.String(), "/regen") {
		t.Errorf("hint must not offer /regen over a complete reply:\n%s", out.String())
	}

	reg := chat.NewRegistry()
	reg.Register("stub", fail)
	r.orch = chat.New(r.db, reg, chat.WithPartialPolicy(chat.KeepPartial))
	t.Cleanup(r.orch.Close)

	out.Reset()
	if err := r.send("Once more"); err == nil {
		t.Fatal("send succeeded, want failure")
	}
	if !strings.Contains(out.String(), "/regen to try again") {
		t.Errorf("hint should offer /regen over a kept partial reply:\n%s", out.String())
	}
}

func TestREPL_SlashCommands(t *testing.T) {
	r, out := newTestREPL(t, streamFunc(func(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
		emit(model.TextEvent("noted"))
		emit(model.DoneEvent())
		return nil
	}))
	r.exportDir = t.TempDir()

	if err := r.send("Remember the milk"); err != nil {
		t.Fatal(err)
	}
	if quit, err := r.handle("/TITLE  Shopping   list"); quit || err != nil {
		t.Fatalf("/title: quit=%v err=%v", quit, err)
	}
	if r.session.Title != "Shopping   list" {
		t.Errorf("title = %q, want the raw argument text", r.session.Title)
	}

	if _, err := r.handle("/export json"); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(r.exportDir, "chat_Shopping*.json"))
	if len(matches) != 1 {
		t.Fatalf("export files = %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	var doc export.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Messages) != 2 {
		t.Errorf("exported %d messages, want 2", len(doc.Messages))
	}
	if _, err := r.handle("/export pdf"); GetExitCode(err) != ExitUsageError {
		t.Errorf("/export pdf: err = %v", err)
	}

	if _, err := r.handle("/open"); GetExitCode(err) != ExitUsageError {
		t.Errorf("/open without id: err = %v", err)
	}

	out.Reset()
	if _, err := r.handle("/h"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Conversation", "/search <text>", "/provider [id]", "exit (or Ctrl+D)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help missing %q:\n%s", want, out.String())
		}
	}

	for _, input := range []string{"/exit", "/Q", "quit"} {
		if quit, err := r.handle(input); !quit || err != nil {
			t.Errorf("handle(%q) = %v, %v; want quit", input, quit, err)
		}
	}
}

func TestREPL_Completion(t *testing.T) {
	r, _ := newTestREPL(t, streamFunc(func(ctx context.Context, p config.Provider, history []model.Turn, emit func(model.StreamEvent)) error {
		emit(model.DoneEvent())
		return nil
	}))
	complete := r.completer().LineCompleter()

	if got := complete("/reg"); len(got) != 1 || got[0] != "/regen" {
		t.Errorf("complete(/reg) = %q", got)
	}
	if got := complete("/provider st"); len(got) != 1 || got[0] != "/provider stub" {
		t.Errorf("complete(/provider st) = %q", got)
	}
	prefix := r.session.ID[:4]
	got := complete("/open " + prefix)
	if len(got) == 0 || got[0] != "/open "+r.session.ID {
		t.Errorf("complete(/open %s) = %q, want the current session", prefix, got)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{usageErrorf("--limit", "bad"), ExitUsageError},
		{fmt.Errorf("wrap: %w", model.ErrConfiguration), ExitConfigError},
		{config.ValidateErrors{{Field: "log.level", Message: "bad"}}, ExitConfigError},
		{&model.TransportError{Op: "dial", Err: errors.New("refused")}, ExitNetworkError},
		{fmt.Errorf("session x: %w", model.ErrNotFound), ExitNotFoundError},
		{model.ErrBusy, ExitBusyError},
		{&commands.UnknownCommandError{Name: "/x"}, ExitUsageError},
		{&commands.ValidationError{Command: "/open", Message: "required argument missing"}, ExitUsageError},
	}
	for _, tt := range tests {
		if got := GetExitCode(tt.err); got != tt.want {
			t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	if got := formatAge(now.Add(-5*time.Minute), now); got != "5m ago" {
		t.Errorf("formatAge(5m) = %q", got)
	}
	if got := formatAge(now.Add(time.Minute), now); got != "0s ago" {
		t.Errorf("formatAge(future) = %q", got)
	}
	old := now.Add(-30 * 24 * time.Hour)
	if got := formatAge(old, now); got != old.Local().Format("2006-01-02") {
		t.Errorf("formatAge(30d) = %q", got)
	}
}
