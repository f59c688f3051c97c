// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/jeranaias/rigrun-chat/internal/util"
)

// DefaultSessionTitle is used when a session is created without a title.
const DefaultSessionTitle = "New Chat"

// maxTitleRunes caps titles derived from a first prompt.
const maxTitleRunes = 50

// Session is a conversation. FolderID is empty when the session is not in
// any folder.
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	IsPinned  bool      `json:"is_pinned" yaml:"is_pinned"`
	FolderID  string    `json:"folder_id,omitempty" yaml:"folder_id,omitempty"`
}

// InFolder reports whether the session belongs to a folder.
func (s Session) InFolder() bool {
	return s.FolderID != ""
}

// TitleFromPrompt derives a short single-line title from the first prompt.
func TitleFromPrompt(prompt string) string {
	title := util.TruncateRunes(util.SingleLine(prompt), maxTitleRunes)
	if title == "" {
		return DefaultSessionTitle
	}
	return title
}

// Folder is a flat grouping of sessions. SortOrder is unique across folders.
type Folder struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Color     string    `json:"color" yaml:"color"`
	Icon      string    `json:"icon" yaml:"icon"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	SortOrder int       `json:"sort_order" yaml:"sort_order"`
	Collapsed bool      `json:"collapsed" yaml:"collapsed"`
}
