// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/jeranaias/rigrun-chat/internal/chat"
	"github.com/jeranaias/rigrun-chat/internal/model"
)

// ============================================================================
// SSE
// ============================================================================

type sendRequest struct {
	Content    string `json:"content"`
	ProviderID string `json:"provider_id"`
}

type regenerateRequest struct {
	ProviderID string `json:"provider_id"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "content must not be empty")
		return
	}
	call, err := s.call(req.ProviderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	st := s.orch.Send(r.Context(), chi.URLParam(r, "sessionID"), call, req.Content)
	s.streamSSE(w, r, st)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	call, err := s.call(req.ProviderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	st := s.orch.Regenerate(r.Context(), chi.URLParam(r, "sessionID"), call)
	s.streamSSE(w, r, st)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	canceled := s.orch.Cancel(chi.URLParam(r, "sessionID"))
	writeJSON(w, http.StatusOK, map[string]bool{"canceled": canceled})
}

// streamSSE relays every event of st as "event: <type>\ndata: <json>". The
// response ends after the terminal event.
func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, st *chat.Stream) {
	defer st.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, model.CodeUnknown, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range st.Events() {
		if err := writeSSE(w, flusher, ev); err != nil {
			s.logger.Debug("sse client gone", "err", err)
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev model.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// ============================================================================
// WEBSOCKET
// ============================================================================

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 64 * 1024
)

// wsRequest is a client frame: {"type":"send","content":"..."},
// {"type":"regenerate"} or {"type":"cancel"}.
type wsRequest struct {
	Type       string `json:"type"`
	Content    string `json:"content,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.db.Sessions().Get(r.Context(), sessionID); err != nil {
		s.writeStoreError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}
	ctx, cancel := context.WithCancel(context.Background())
	var streams sync.WaitGroup
	defer func() {
		cancel()
		streams.Wait()
	}()

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ws.ping(); err != nil {
					return
				}
			}
		}
	}()

	s.logger.Debug("websocket open", "session", sessionID)
	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "session", sessionID, "err", err)
			}
			return
		}

		var st *chat.Stream
		switch req.Type {
		case "send":
			if strings.TrimSpace(req.Content) == "" {
				_ = ws.writeJSON(badRequestEvent("content must not be empty"))
				continue
			}
			call, err := s.call(req.ProviderID)
			if err != nil {
				_ = ws.writeJSON(model.ErrorEvent(err))
				continue
			}
			st = s.orch.Send(ctx, sessionID, call, req.Content)
		case "regenerate":
			call, err := s.call(req.ProviderID)
			if err != nil {
				_ = ws.writeJSON(model.ErrorEvent(err))
				continue
			}
			st = s.orch.Regenerate(ctx, sessionID, call)
		case "cancel":
			s.orch.Cancel(sessionID)
			continue
		default:
			_ = ws.writeJSON(badRequestEvent(fmt.Sprintf("unknown request type %q", req.Type)))
			continue
		}

		streams.Add(1)
		go func() {
			defer streams.Done()
			defer st.Close()
			for ev := range st.Events() {
				if err := ws.writeJSON(ev); err != nil {
					return
				}
			}
		}()
	}
}

func badRequestEvent(msg string) model.StreamEvent {
	return model.StreamEvent{Type: model.EventError, Code: "bad_request", Message: msg}
}
