// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/rigrun-chat/internal/chat"
	"github.com/jeranaias/rigrun-chat/internal/export"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// ============================================================================
// SESSIONS
// ============================================================================

type createSessionRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type updateSessionRequest struct {
	Title    *string `json:"title"`
	IsPinned *bool   `json:"is_pinned"`
	FolderID *string `json:"folder_id"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	var (
		sessions []model.Session
		err      error
	)
	if q := r.URL.Query(); q.Has("folder") {
		sessions, err = s.db.Sessions().ListByFolder(r.Context(), q.Get("folder"))
	} else {
		sessions, err = s.db.Sessions().List(r.Context())
	}
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.db.Sessions().Create(r.Context(), req.ID, strings.TrimSpace(req.Title))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.db.Sessions().Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	var req updateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == nil && req.IsPinned == nil && req.FolderID == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "nothing to update")
		return
	}

	ctx := r.Context()
	sessions := s.db.Sessions()
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "title must not be empty")
			return
		}
		if err := sessions.UpdateTitle(ctx, id, title); err != nil {
			s.writeStoreError(w, err)
			return
		}
	}
	if req.IsPinned != nil {
		if err := sessions.SetPinned(ctx, id, *req.IsPinned); err != nil {
			s.writeStoreError(w, err)
			return
		}
	}
	if req.FolderID != nil {
		if err := sessions.SetFolder(ctx, id, *req.FolderID); err != nil {
			s.writeStoreError(w, err)
			return
		}
	}

	sess, err := sessions.Get(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleDeleteSession removes the session's messages, then the session.
// Sessions with a running request are refused.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	if st := s.orch.State(id); st != chat.StateIdle {
		writeError(w, http.StatusConflict, model.CodeBusy, fmt.Sprintf("session %s is %s", id, st))
		return
	}
	if _, err := s.db.Sessions().Get(ctx, id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	n, err := s.db.Messages().DeleteBySession(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if err := s.db.Sessions().Delete(ctx, id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.logger.Info("session deleted", "session", id, "messages", n)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted_messages": n})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "state": s.orch.State(id).String()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "markdown"
	}
	opts := export.DefaultOptions()
	if theme := r.URL.Query().Get("theme"); theme != "" {
		opts.Theme = theme
	}
	exp, err := export.ForFormat(format, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	sess, msgs, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	data, err := exp.Export(sess, msgs)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", exp.MimeType()+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "session-"+sess.ID+exp.FileExtension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// loadSession fetches the URL's session and its messages.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (model.Session, []model.Message, bool) {
	ctx := r.Context()
	sess, err := s.db.Sessions().Get(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeStoreError(w, err)
		return model.Session{}, nil, false
	}
	msgs, err := s.db.Messages().ListBySession(ctx, sess.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return model.Session{}, nil, false
	}
	return sess, msgs, true
}

// ============================================================================
// MESSAGES
// ============================================================================

type updateMessageRequest struct {
	Content  *string `json:"content"`
	IsPinned *bool   `json:"is_pinned"`
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	_, msgs, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleListPinned(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, err := s.db.Sessions().Get(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	msgs, err := s.db.Messages().ListPinned(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSearchSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if _, err := s.db.Sessions().Get(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	msgs, err := s.db.Messages().Search(r.Context(), id, r.URL.Query().Get("q"), rng)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSearchAll(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if limit == 0 {
		limit = storage.DefaultSearchLimit
	}
	msgs, err := s.db.Messages().SearchAll(r.Context(), r.URL.Query().Get("q"), limit, rng)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.db.Messages().Get(r.Context(), chi.URLParam(r, "messageID"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "messageID")
	var req updateMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == nil && req.IsPinned == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "nothing to update")
		return
	}

	ctx := r.Context()
	if req.Content != nil {
		if err := s.db.Messages().UpdateContent(ctx, id, *req.Content); err != nil {
			s.writeStoreError(w, err)
			return
		}
	}
	if req.IsPinned != nil {
		if err := s.db.Messages().SetPinned(ctx, id, *req.IsPinned); err != nil {
			s.writeStoreError(w, err)
			return
		}
	}
	msg, err := s.db.Messages().Get(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Messages().Delete(r.Context(), chi.URLParam(r, "messageID")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
