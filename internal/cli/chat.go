// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new [title]        Start a new session
//   /open <id>          Switch to an existing session
//   /sessions           List recent sessions
//   /regen, /r          Replace the last reply
//   /history            Print the current session
//   /search <text>      Search the current session
//   /export [format]    Export the current session
//   /pin, /unpin        Pin or unpin the current session
//   /title <text>       Rename the current session
//   /provider [id]      Show or switch the provider for this REPL
//   /quit, /q           Exit chat
//   Tab                 Complete commands, session ids and providers
//   Ctrl+C              Cancel the reply being generated
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-chat/internal/chat"
	"github.com/jeranaias/rigrun-chat/internal/commands"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/offline"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// recentSessions bounds the /sessions listing.
const recentSessions = 10

func newChatCmd(a *app) *cobra.Command {
	var (
		sessionID   string
		providerID  string
		keepPartial bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Example: `  rigrun-chat chat                       new session, current provider
  rigrun-chat chat --session 6f1c...     continue a conversation
  rigrun-chat chat --provider local      use another configured provider`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			call, err := a.call(providerID)
			if err != nil {
				return err
			}
			return a.withDB(func(db *storage.DB) error {
				opts := []chat.Option{chat.WithLogger(logging.For(a.logger, "chat"))}
				if keepPartial {
					opts = append(opts, chat.WithPartialPolicy(chat.KeepPartial))
				}
				orch := chat.New(db, a.clients(), opts...)
				defer orch.Close()

				r := &repl{
					ctx:  cmd.Context(),
					out:  cmd.OutOrStdout(),
					db:   db,
					orch: orch,
					cfg:  a.cfg,
					call: call,
				}
				if err := r.open(sessionID); err != nil {
					return err
				}

				line := newLineEditor()
				defer line.Close()
				line.SetCompleter(r.completer().LineCompleter())

				stop := r.cancelOnInterrupt()
				defer stop()

				if IsTTY() {
					r.welcome()
				}
				return r.run(line)
			})
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "continue this session")
	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "provider id (default: current)")
	cmd.Flags().BoolVar(&keepPartial, "keep-partial", false, "keep partial replies when a stream fails")
	return cmd
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader is the part of liner.State the REPL needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// lineEditor wraps liner with a persistent history file.
type lineEditor struct {
	*liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{State: state, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = e.ReadHistory(f)
		f.Close()
	}
	return e
}

// Close saves history with 0600 permissions and restores the terminal.
func (e *lineEditor) Close() error {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = e.WriteHistory(f)
			f.Close()
		}
	}
	return e.State.Close()
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	ctx     context.Context
	out     io.Writer
	db      *storage.DB
	orch    *chat.Orchestrator
	cfg     *config.Config
	call    chat.Call
	session model.Session

	// exportDir is where /export writes; "" means the working directory.
	exportDir string
	cmds      *commands.Registry

	// activeID mirrors session.ID for the interrupt handler.
	activeID atomic.Value
}

func (r *repl) setSession(s model.Session) {
	r.session = s
	r.activeID.Store(s.ID)
}

// open continues session id, or starts a new session when id is empty.
func (r *repl) open(id string) error {
	var (
		sess model.Session
		err  error
	)
	if id == "" {
		sess, err = r.db.Sessions().Create(r.ctx, "", "")
	} else {
		sess, err = r.db.Sessions().Get(r.ctx, id)
	}
	if err != nil {
		return err
	}
	r.setSession(sess)
	return nil
}

// cancelOnInterrupt turns Ctrl+C during a reply into a cancel of the current
// session. While liner is prompting, Ctrl+C is read as a key instead.
func (r *repl) cancelOnInterrupt() func() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sig:
				if id, ok := r.activeID.Load().(string); ok {
					r.orch.Cancel(id)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sig)
		close(done)
	}
}

func (r *repl) welcome() {
	provider := "none (add one with: rigrun-chat providers add)"
	if r.call.Provider != nil {
		provider = r.call.Provider.DisplayName() + " / " + r.call.Provider.ModelID
	}
	fmt.Fprintln(r.out, TitleStyle.Render("rigrun-chat "+Version))
	fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Session"), ValueStyle.Render(r.session.Title+"  "+r.session.ID))
	if badge := offline.StatusBadge(r.cfg.Client.Offline); badge != "" {
		provider += "  " + WarningStyle.Render(badge)
	}
	fmt.Fprintf(r.out, "%s%s\n", RenderLabel("Provider"), ValueStyle.Render(provider))
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	width := GetTerminalWidth() - 4
	if width > 70 {
		width = 70
	}
	fmt.Fprintln(r.out, RenderSeparator(width))
}

// run reads lines until EOF, Ctrl+C at the prompt or /quit.
func (r *repl) run(in lineReader) error {
	for {
		input, err := in.Prompt(PromptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		in.AppendHistory(input)

		quit, err := r.handle(input)
		if err != nil {
			DisplayError(r.out, err)
		}
		if quit {
			return nil
		}
	}
}

// handle runs one line of input and reports whether the REPL should exit.
func (r *repl) handle(input string) (bool, error) {
	if !commands.IsCommand(input) {
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return true, nil
		}
		return false, r.send(input)
	}
	if err := r.commands().Execute(input); err != nil {
		if errors.Is(err, commands.ErrQuit) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// send streams a reply to text. The first exchange of an untitled session
// names it after the prompt.
func (r *repl) send(text string) error {
	untitled := r.session.Title == model.DefaultSessionTitle
	if err := r.consume(r.orch.Send(r.ctx, r.session.ID, r.call, text)); err != nil {
		return err
	}
	if untitled {
		title := model.TitleFromPrompt(text)
		if err := r.db.Sessions().UpdateTitle(r.ctx, r.session.ID, title); err != nil {
			return err
		}
		r.session.Title = title
	}
	return nil
}

// consume prints a reply as it streams. A canceled reply is reported but is
// not an error.
func (r *repl) consume(st *chat.Stream) error {
	defer st.Close()

	fmt.Fprintf(r.out, "\n%s\n", AssistantStyle.Render("Assistant"))
	var final model.StreamEvent
	for ev := range st.Events() {
		if ev.Type == model.EventText {
			fmt.Fprint(r.out, ev.Content)
			continue
		}
		final = ev
	}
	fmt.Fprintln(r.out)

	if final.Type != model.EventError {
		return nil
	}
	if final.Code == model.CodeCanceled {
		fmt.Fprintln(r.out, WarningStyle.Render("[Cancelled]"))
		return nil
	}
	if final.Transient {
		fmt.Fprintln(r.out, DimStyle.Render("This may be temporary; "+r.retryHint()+" to try again."))
	}
	return fmt.Errorf("%s: %w", final.Code, final.AsError())
}

// retryHint offers /regen only when the last message is a kept partial
// reply. Otherwise /regen would replace the previous, complete reply.
func (r *repl) retryHint() string {
	msgs, err := r.db.Messages().ListBySession(r.ctx, r.session.ID)
	if err == nil && len(msgs) > 0 && msgs[len(msgs)-1].Role == model.RoleAssistant {
		return "/regen"
	}
	return "resend your message"
}

func (r *repl) switchProvider(id string) error {
	if id == "" {
		if r.call.Provider == nil {
			fmt.Fprintln(r.out, DimStyle.Render("No provider selected."))
			return nil
		}
		p := r.call.Provider
		fmt.Fprintf(r.out, "%s (%s, %s)\n", p.ID, p.EffectiveKind(), p.ModelID)
		return nil
	}
	p, ok := r.cfg.ProviderByID(id)
	if !ok {
		return fmt.Errorf("provider %q: %w", id, model.ErrNotFound)
	}
	cp := *p
	r.call = chat.Call{Provider: &cp}
	fmt.Fprintf(r.out, "%s %s\n", SuccessStyle.Render("Using"), cp.DisplayName())
	return nil
}
