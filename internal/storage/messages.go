// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// DefaultSearchLimit is the result cap callers use when the user gives none.
const DefaultSearchLimit = 50

const messageColumns = `id, session_id, role, content, created_at, is_pinned`

// MessageStore persists messages. Content is stored alongside its Unicode
// case fold so search is case-insensitive for any script.
type MessageStore struct {
	db    *sql.DB
	clock util.Clock
}

// fold applies Unicode full case folding. A Caser is stateful, so a new one
// is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

func scanMessage(s scanner) (model.Message, error) {
	var (
		m         model.Message
		role      string
		createdAt int64
		pinned    int
	)
	if err := s.Scan(&m.ID, &m.SessionID, &role, &m.Content, &createdAt, &pinned); err != nil {
		return model.Message{}, err
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return model.Message{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	m.Role = r
	m.CreatedAt = fromNanos(createdAt)
	m.IsPinned = pinned != 0
	return m, nil
}

func (s *MessageStore) query(ctx context.Context, q string, args ...any) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// =============================================================================
// CRUD
// =============================================================================

// Append inserts msg. An empty ID or zero CreatedAt is filled in. Returns
// ErrDuplicateID if the ID already exists.
func (s *MessageStore) Append(ctx context.Context, msg model.Message) (model.Message, error) {
	if !msg.Role.Valid() {
		return model.Message{}, fmt.Errorf("append message: invalid role %q", msg.Role)
	}
	if msg.SessionID == "" {
		return model.Message{}, errors.New("append message: session id is required")
	}
	if msg.ID == "" {
		msg.ID = model.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.clock.Now()
	}
	msg.CreatedAt = fromNanos(toNanos(msg.CreatedAt))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, content_folded, created_at, is_pinned)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, fold(msg.Content),
		toNanos(msg.CreatedAt), boolToInt(msg.IsPinned))
	if err != nil {
		if isConstraint(err, "messages.id") {
			return model.Message{}, fmt.Errorf("message %s: %w", msg.ID, model.ErrDuplicateID)
		}
		return model.Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// Get returns a single message.
func (s *MessageStore) Get(ctx context.Context, id string) (model.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, fmt.Errorf("message %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Message{}, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// ListBySession returns the session's messages, oldest first.
func (s *MessageStore) ListBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	return s.query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = ?
		 ORDER BY created_at ASC, rowid ASC`, sessionID)
}

// LastByRole returns the most recent message with the given role.
func (s *MessageStore) LastByRole(ctx context.Context, sessionID string, role model.Role) (model.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = ? AND role = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, sessionID, string(role))
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, fmt.Errorf("%s message in session %s: %w", role, sessionID, model.ErrNotFound)
	}
	if err != nil {
		return model.Message{}, fmt.Errorf("last message: %w", err)
	}
	return m, nil
}

// UpdateContent replaces a message's content.
func (s *MessageStore) UpdateContent(ctx context.Context, id, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, content_folded = ? WHERE id = ?`,
		content, fold(content), id)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return requireOne(res, "message", id)
}

// Delete removes one message.
func (s *MessageStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return requireOne(res, "message", id)
}

// DeleteBySession removes every message of a session and returns how many
// were deleted.
func (s *MessageStore) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session messages: %w", err)
	}
	return res.RowsAffected()
}

// CountBySession returns the number of messages in a session.
func (s *MessageStore) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// =============================================================================
// PINNING
// =============================================================================

// SetPinned sets the pin flag. Setting the current value again is a no-op.
func (s *MessageStore) SetPinned(ctx context.Context, id string, pinned bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_pinned = ? WHERE id = ?`, boolToInt(pinned), id)
	if err != nil {
		return fmt.Errorf("pin message: %w", err)
	}
	return requireOne(res, "message", id)
}

// ListPinned returns the session's pinned messages, newest first.
func (s *MessageStore) ListPinned(ctx context.Context, sessionID string) ([]model.Message, error) {
	return s.query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = ? AND is_pinned = 1
		 ORDER BY created_at DESC, rowid DESC`, sessionID)
}

// =============================================================================
// SEARCH
// =============================================================================

// searchClause builds the shared WHERE fragment for a folded substring match
// plus the optional inclusive date range.
func searchClause(query string, r model.DateRange) (string, []any) {
	var sb strings.Builder
	args := []any{fold(query)}
	sb.WriteString(`instr(content_folded, ?) > 0`)
	if r.Start != nil {
		sb.WriteString(` AND created_at >= ?`)
		args = append(args, toNanos(*r.Start))
	}
	if r.End != nil {
		sb.WriteString(` AND created_at <= ?`)
		args = append(args, toNanos(*r.End))
	}
	return sb.String(), args
}

// Search finds messages in one session whose content contains query,
// ignoring case. An empty query matches nothing. Results are oldest first.
func (s *MessageStore) Search(ctx context.Context, sessionID, query string, r model.DateRange) ([]model.Message, error) {
	if query == "" {
		return []model.Message{}, nil
	}
	where, args := searchClause(query, r)
	args = append([]any{sessionID}, args...)
	return s.query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE session_id = ? AND `+where+`
		 ORDER BY created_at ASC, rowid ASC`, args...)
}

// SearchAll searches every session, newest first, returning at most limit
// results. A limit <= 0 matches nothing.
func (s *MessageStore) SearchAll(ctx context.Context, query string, limit int, r model.DateRange) ([]model.Message, error) {
	if query == "" || limit <= 0 {
		return []model.Message{}, nil
	}
	where, args := searchClause(query, r)
	args = append(args, limit)
	return s.query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE `+where+`
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, args...)
}
