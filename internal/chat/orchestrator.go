// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/storage"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle position of a session's request.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateCompleted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PartialPolicy decides what happens to streamed text when a request fails.
type PartialPolicy int

const (
	// DiscardPartial drops the text; no assistant message is written.
	DiscardPartial PartialPolicy = iota

	// KeepPartial stores the text followed by InterruptedMarker.
	KeepPartial
)

// InterruptedMarker ends a partial reply kept under KeepPartial.
const InterruptedMarker = "\n\n[response interrupted]"

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for message and session timestamps.
func WithClock(c util.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.For(l, "chat")
	}
}

// WithPartialPolicy sets the policy for text streamed before a failure.
func WithPartialPolicy(p PartialPolicy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// worker is the single in-flight request of a session.
type worker struct {
	state  State
	cancel context.CancelFunc
}

// Orchestrator runs send and regenerate requests.
type Orchestrator struct {
	db      *storage.DB
	clients *Registry
	clock   util.Clock
	logger  *log.Logger
	policy  PartialPolicy

	mu     sync.Mutex
	active map[string]*worker
	closed bool
	wg     sync.WaitGroup
}

// New creates an Orchestrator over db that picks clients from clients.
func New(db *storage.DB, clients *Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		db:      db,
		clients: clients,
		clock:   util.DefaultClock(),
		logger:  logging.Discard(),
		active:  make(map[string]*worker),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the session's current state. Sessions without a running
// request are Idle.
func (o *Orchestrator) State(sessionID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if w, ok := o.active[sessionID]; ok {
		return w.state
	}
	return StateIdle
}

// Cancel aborts the session's running request. The request ends with an
// Error event coded canceled. Returns false if nothing was running.
func (o *Orchestrator) Cancel(sessionID string) bool {
	o.mu.Lock()
	w, ok := o.active[sessionID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	o.logger.Info("cancel requested", "session", sessionID)
	w.cancel()
	return true
}

// Close cancels every running request and waits for the workers to exit.
// Later requests fail with a canceled error.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	for _, w := range o.active {
		w.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// acquire claims the session's single-flight slot.
func (o *Orchestrator) acquire(ctx context.Context, sessionID string) (*worker, context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, nil, fmt.Errorf("orchestrator closed: %w", model.ErrCanceled)
	}
	if w, ok := o.active[sessionID]; ok {
		return nil, nil, fmt.Errorf("session %s is %s: %w", sessionID, w.state, model.ErrBusy)
	}
	wctx, cancel := context.WithCancel(ctx)
	w := &worker{state: StateSending, cancel: cancel}
	o.active[sessionID] = w
	o.wg.Add(1)
	return w, wctx, nil
}

// release frees the slot. Must be called exactly once per acquire.
func (o *Orchestrator) release(sessionID string, w *worker) {
	o.mu.Lock()
	if o.active[sessionID] == w {
		delete(o.active, sessionID)
	}
	o.mu.Unlock()
	w.cancel()
	o.wg.Done()
}

func (o *Orchestrator) setState(sessionID string, w *worker, s State) {
	o.mu.Lock()
	w.state = s
	o.mu.Unlock()
}

// =============================================================================
// REQUESTS
// =============================================================================

// Send appends text as a user message to the session and streams the
// assistant's reply.
func (o *Orchestrator) Send(ctx context.Context, sessionID string, call Call, text string) *Stream {
	client, p, err := o.clients.resolve(call)
	if err != nil {
		return failed(err)
	}
	w, wctx, err := o.acquire(ctx, sessionID)
	if err != nil {
		return failed(err)
	}

	if err := o.prepareSend(ctx, sessionID, text); err != nil {
		o.release(sessionID, w)
		return failed(err)
	}

	o.logger.Debug("send", "session", sessionID, "provider", p.ID, "model", p.ModelID)
	return o.start(wctx, sessionID, w, p, client)
}

func (o *Orchestrator) prepareSend(ctx context.Context, sessionID, text string) error {
	if _, err := o.db.Sessions().Get(ctx, sessionID); err != nil {
		return err
	}
	msg := model.NewMessage(sessionID, model.RoleUser, text, o.clock.Now())
	if _, err := o.db.Messages().Append(ctx, msg); err != nil {
		return fmt.Errorf("save user message: %w", err)
	}
	if err := o.db.Sessions().UpdateUpdatedAt(ctx, sessionID, o.clock.Now()); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Regenerate deletes the session's last assistant message and streams a
// new reply to the remaining history. Nothing is changed when the session
// has no messages or no assistant message.
func (o *Orchestrator) Regenerate(ctx context.Context, sessionID string, call Call) *Stream {
	client, p, err := o.clients.resolve(call)
	if err != nil {
		return failed(err)
	}
	w, wctx, err := o.acquire(ctx, sessionID)
	if err != nil {
		return failed(err)
	}

	if err := o.prepareRegenerate(ctx, sessionID); err != nil {
		o.release(sessionID, w)
		return failed(err)
	}

	o.logger.Debug("regenerate", "session", sessionID, "provider", p.ID, "model", p.ModelID)
	return o.start(wctx, sessionID, w, p, client)
}

func (o *Orchestrator) prepareRegenerate(ctx context.Context, sessionID string) error {
	if _, err := o.db.Sessions().Get(ctx, sessionID); err != nil {
		return err
	}
	n, err := o.db.Messages().CountBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, model.ErrNoMessages)
	}
	last, err := o.db.Messages().LastByRole(ctx, sessionID, model.RoleAssistant)
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("session %s: %w", sessionID, model.ErrNoAssistantMessage)
	}
	if err != nil {
		return err
	}
	if err := o.db.Messages().Delete(ctx, last.ID); err != nil {
		return fmt.Errorf("remove previous reply: %w", err)
	}
	return nil
}

// start launches the worker for an acquired session.
func (o *Orchestrator) start(ctx context.Context, sessionID string, w *worker, p config.Provider, client StreamClient) *Stream {
	st := newStream()
	st.cancel = w.cancel
	go o.run(ctx, sessionID, w, p, client, st)
	return st
}

// =============================================================================
// WORKER
// =============================================================================

func (o *Orchestrator) run(ctx context.Context, sessionID string, w *worker, p config.Provider, client StreamClient, st *Stream) {
	var (
		buf      strings.Builder
		terminal *model.StreamEvent
	)

	emit := func(ev model.StreamEvent) {
		if terminal != nil {
			return
		}
		switch ev.Type {
		case model.EventText:
			if buf.Len() == 0 {
				o.setState(sessionID, w, StateStreaming)
			}
			buf.WriteString(ev.Content)
			st.send(ev)
		case model.EventDone, model.EventError:
			e := ev
			terminal = &e
		}
	}

	history, err := o.db.Messages().ListBySession(ctx, sessionID)
	if err != nil {
		emit(model.ErrorEvent(fmt.Errorf("load history: %w", err)))
	} else {
		err = client.Stream(ctx, p, model.Turns(history), emit)
		if terminal == nil {
			if err == nil {
				err = &model.UnknownError{Err: errors.New("client returned without a terminal event")}
			}
			emit(model.ErrorEvent(err))
		}
	}

	final := *terminal
	// Cancellation wins over whatever the client made of the torn connection.
	if final.Type == model.EventError && final.Code != model.CodeCanceled && errors.Is(ctx.Err(), context.Canceled) {
		final = model.ErrorEvent(fmt.Errorf("%s: %w", sessionID, model.ErrCanceled))
	}

	// Persistence must not be torn by a late cancel.
	pctx := context.WithoutCancel(ctx)
	if final.Type == model.EventDone {
		o.setState(sessionID, w, StateCompleted)
		if err := o.persistReply(pctx, sessionID, buf.String()); err != nil {
			o.logger.Error("failed to save reply", "session", sessionID, "err", err)
			final = model.ErrorEvent(err)
		} else {
			o.logger.Debug("reply saved", "session", sessionID, "chars", buf.Len())
		}
	} else {
		o.setState(sessionID, w, StateFailed)
		o.logger.Warn("request failed", "session", sessionID, "code", final.Code, "transient", final.Transient)
		if o.policy == KeepPartial && buf.Len() > 0 {
			if err := o.persistReply(pctx, sessionID, buf.String()+InterruptedMarker); err != nil {
				o.logger.Error("failed to save partial reply", "session", sessionID, "err", err)
			}
		}
	}

	o.release(sessionID, w)
	st.finish(final)
}

func (o *Orchestrator) persistReply(ctx context.Context, sessionID, content string) error {
	msg := model.NewMessage(sessionID, model.RoleAssistant, content, o.clock.Now())
	if _, err := o.db.Messages().Append(ctx, msg); err != nil {
		return fmt.Errorf("save assistant message: %w", err)
	}
	if err := o.db.Sessions().UpdateUpdatedAt(ctx, sessionID, o.clock.Now()); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}
