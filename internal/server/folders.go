// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type createFolderRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type updateFolderRequest struct {
	Name      *string `json:"name"`
	Color     *string `json:"color"`
	Icon      *string `json:"icon"`
	SortOrder *int    `json:"sort_order"`
	Collapsed *bool   `json:"collapsed"`
}

type swapFoldersRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.db.Folders().List(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "name must not be empty")
		return
	}
	f, err := s.db.Folders().Create(r.Context(), name, req.Color, req.Icon)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	f, err := s.db.Folders().Get(r.Context(), chi.URLParam(r, "folderID"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	var req updateFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "name must not be empty")
		return
	}

	ctx := r.Context()
	folders := s.db.Folders()
	steps := []struct {
		set bool
		run func() error
	}{
		{req.Name != nil, func() error { return folders.UpdateName(ctx, id, strings.TrimSpace(*req.Name)) }},
		{req.Color != nil, func() error { return folders.UpdateColor(ctx, id, *req.Color) }},
		{req.Icon != nil, func() error { return folders.UpdateIcon(ctx, id, *req.Icon) }},
		{req.SortOrder != nil, func() error { return folders.UpdateSortOrder(ctx, id, *req.SortOrder) }},
		{req.Collapsed != nil, func() error { return folders.SetCollapsed(ctx, id, *req.Collapsed) }},
	}

	updated := false
	for _, step := range steps {
		if !step.set {
			continue
		}
		if err := step.run(); err != nil {
			s.writeStoreError(w, err)
			return
		}
		updated = true
	}
	if !updated {
		writeError(w, http.StatusBadRequest, "bad_request", "nothing to update")
		return
	}

	f, err := folders.Get(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Folders().Delete(r.Context(), chi.URLParam(r, "folderID")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSwapFolders(w http.ResponseWriter, r *http.Request) {
	var req swapFoldersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.A == "" || req.B == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "a and b are required")
		return
	}
	if err := s.db.Folders().SwapOrder(r.Context(), req.A, req.B); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.handleListFolders(w, r)
}

func (s *Server) handleFolderSessions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	if _, err := s.db.Folders().Get(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	sessions, err := s.db.Sessions().ListByFolder(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}
