// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/jeranaias/rigrun-chat/internal/chat"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// Version is the API version reported by /health.
	Version = "0.1.0"

	// MaxRequestBodySize caps JSON request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Server serves the chat API.
type Server struct {
	db       *storage.DB
	orch     *chat.Orchestrator
	cfg      atomic.Pointer[config.Config]
	logger   *log.Logger
	upgrader websocket.Upgrader
	started  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = logging.For(l, "server")
	}
}

// New creates a Server. cfg supplies the provider selection, the auth
// token and the rate limit.
func New(db *storage.DB, orch *chat.Orchestrator, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		db:      db,
		orch:    orch,
		logger:  logging.Discard(),
		started: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if cfg == nil {
		cfg = config.Default()
	}
	s.cfg.Store(cfg)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetConfig swaps the configuration used by later requests.
func (s *Server) SetConfig(cfg *config.Config) {
	if cfg != nil {
		s.cfg.Store(cfg)
	}
}

func (s *Server) config() *config.Config {
	return s.cfg.Load()
}

func (s *Server) token() string {
	return s.config().Server.Token
}

// call resolves the provider for a request. An empty id selects the current
// provider; a missing current provider surfaces as a configuration error on
// the stream.
func (s *Server) call(providerID string) (chat.Call, error) {
	cfg := s.config()
	if providerID == "" {
		return chat.CallFor(cfg), nil
	}
	p, ok := cfg.ProviderByID(providerID)
	if !ok {
		return chat.Call{}, fmt.Errorf("provider %q: %w", providerID, model.ErrNotFound)
	}
	cp := *p
	return chat.Call{Provider: &cp}, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware())

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.token, s.logger))
		if n := s.config().Server.RateLimitPerMinute; n > 0 {
			r.Use(RateLimitMiddleware(NewRateLimiter(n), s.logger))
		}

		r.Route("/api", func(api chi.Router) {
			api.Get("/search", s.handleSearchAll)

			api.Route("/sessions", func(r chi.Router) {
				r.Get("/", s.handleListSessions)
				r.Post("/", s.handleCreateSession)
				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", s.handleGetSession)
					r.Patch("/", s.handleUpdateSession)
					r.Delete("/", s.handleDeleteSession)
					r.Get("/messages", s.handleListMessages)
					r.Get("/search", s.handleSearchSession)
					r.Get("/pinned", s.handleListPinned)
					r.Get("/state", s.handleState)
					r.Get("/export", s.handleExport)
					r.Post("/send", s.handleSend)
					r.Post("/regenerate", s.handleRegenerate)
					r.Post("/cancel", s.handleCancel)
					r.Get("/ws", s.handleWebSocket)
				})
			})

			api.Route("/messages/{messageID}", func(r chi.Router) {
				r.Get("/", s.handleGetMessage)
				r.Patch("/", s.handleUpdateMessage)
				r.Delete("/", s.handleDeleteMessage)
			})

			api.Route("/folders", func(r chi.Router) {
				r.Get("/", s.handleListFolders)
				r.Post("/", s.handleCreateFolder)
				r.Post("/swap", s.handleSwapFolders)
				r.Route("/{folderID}", func(r chi.Router) {
					r.Get("/", s.handleGetFolder)
					r.Patch("/", s.handleUpdateFolder)
					r.Delete("/", s.handleDeleteFolder)
					r.Get("/sessions", s.handleFolderSessions)
				})
			})
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully and cancels running requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = s.config().Server.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: replies stream for as long as the model talks.
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "version", Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.orch.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ============================================================================
// HEALTH
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Provider string `json:"provider,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.db.Sessions().Count(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "storage", "storage unavailable")
		return
	}
	resp := HealthResponse{
		Status:   "ok",
		Version:  Version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sessions: n,
	}
	if p, err := s.config().CurrentProviderDescriptor(); err == nil {
		resp.Provider = p.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// HELPERS
// ============================================================================

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeStoreError maps a storage or model error onto a status code.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, model.CodeNotFound, err.Error())
	case errors.Is(err, model.ErrDuplicateID):
		writeError(w, http.StatusConflict, "duplicate_id", err.Error())
	case errors.Is(err, model.ErrDuplicateSortOrder):
		writeError(w, http.StatusConflict, "duplicate_sort_order", err.Error())
	default:
		s.logger.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, model.CodeUnknown, "internal error")
	}
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// parseTime accepts RFC 3339 or a date. A date used as an upper bound covers
// the whole day.
func parseTime(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseRange(r *http.Request) (model.DateRange, error) {
	q := r.URL.Query()
	start, err := parseTime(q.Get("from"), false)
	if err != nil {
		return model.DateRange{}, err
	}
	end, err := parseTime(q.Get("to"), true)
	if err != nil {
		return model.DateRange{}, err
	}
	return model.DateRange{Start: start, End: end}, nil
}

func parseLimit(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}
