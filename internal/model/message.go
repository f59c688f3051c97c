// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is a role that may be persisted.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ParseRole converts a stored role string back into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a persisted turn in a session. Messages are immutable except
// for an explicit content edit or regeneration (delete then replace).
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	SessionID string    `json:"session_id" yaml:"session_id"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	IsPinned  bool      `json:"is_pinned" yaml:"is_pinned"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(sessionID string, role Role, content string, createdAt time.Time) Message {
	return Message{
		ID:        NewID(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
	}
}

// Turn is one history entry handed to a provider.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turns converts persisted messages into provider history, preserving order.
func Turns(messages []Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// NewID returns an opaque unique identifier for sessions, messages and folders.
func NewID() string {
	return uuid.NewString()
}

// DateRange is an optional inclusive filter on CreatedAt. A nil bound is open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}
