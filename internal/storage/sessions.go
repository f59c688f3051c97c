// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

const sessionColumns = `id, title, created_at, updated_at, is_pinned, folder_id`

// sessionOrder puts pinned sessions first, each group most recent first.
const sessionOrder = ` ORDER BY is_pinned DESC, updated_at DESC, rowid DESC`

// SessionStore persists sessions. Deleting a session does not touch its
// messages; callers clean those up through MessageStore.DeleteBySession.
type SessionStore struct {
	db    *sql.DB
	clock util.Clock
}

func scanSession(s scanner) (model.Session, error) {
	var (
		sess      model.Session
		createdAt int64
		updatedAt int64
		pinned    int
		folderID  sql.NullString
	)
	if err := s.Scan(&sess.ID, &sess.Title, &createdAt, &updatedAt, &pinned, &folderID); err != nil {
		return model.Session{}, err
	}
	sess.CreatedAt = fromNanos(createdAt)
	sess.UpdatedAt = fromNanos(updatedAt)
	sess.IsPinned = pinned != 0
	sess.FolderID = folderID.String
	return sess, nil
}

func (s *SessionStore) query(ctx context.Context, q string, args ...any) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Create inserts a session with createdAt = updatedAt = now. An empty id is
// generated and an empty title becomes the default title.
func (s *SessionStore) Create(ctx context.Context, id, title string) (model.Session, error) {
	if id == "" {
		id = model.NewID()
	}
	if title == "" {
		title = model.DefaultSessionTitle
	}
	now := fromNanos(toNanos(s.clock.Now()))
	sess := model.Session{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, created_at, updated_at, is_pinned, folder_id)
		 VALUES (?, ?, ?, ?, 0, NULL)`,
		id, title, toNanos(now), toNanos(now))
	if err != nil {
		if isConstraint(err, "sessions.id") {
			return model.Session{}, fmt.Errorf("session %s: %w", id, model.ErrDuplicateID)
		}
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get returns a single session.
func (s *SessionStore) Get(ctx context.Context, id string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// List returns all sessions: pinned first, then unpinned, each group ordered
// by updatedAt descending.
func (s *SessionStore) List(ctx context.Context) ([]model.Session, error) {
	return s.query(ctx, `SELECT `+sessionColumns+` FROM sessions`+sessionOrder)
}

// ListByFolder lists a folder's sessions with the same ordering as List. An
// empty folderID lists sessions that are in no folder.
func (s *SessionStore) ListByFolder(ctx context.Context, folderID string) ([]model.Session, error) {
	if folderID == "" {
		return s.query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE folder_id IS NULL`+sessionOrder)
	}
	return s.query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE folder_id = ?`+sessionOrder, folderID)
}

// Count returns the number of sessions.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// UpdateTitle renames a session.
func (s *SessionStore) UpdateTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("update session title: %w", err)
	}
	return requireOne(res, "session", id)
}

// UpdateUpdatedAt sets updatedAt to the caller-supplied timestamp.
func (s *SessionStore) UpdateUpdatedAt(ctx context.Context, id string, ts time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, toNanos(ts), id)
	if err != nil {
		return fmt.Errorf("update session timestamp: %w", err)
	}
	return requireOne(res, "session", id)
}

// SetPinned sets the pin flag. Setting the current value again is a no-op.
func (s *SessionStore) SetPinned(ctx context.Context, id string, pinned bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET is_pinned = ? WHERE id = ?`, boolToInt(pinned), id)
	if err != nil {
		return fmt.Errorf("pin session: %w", err)
	}
	return requireOne(res, "session", id)
}

// SetFolder moves a session into folderID, or out of any folder when
// folderID is empty. The folder must exist.
func (s *SessionStore) SetFolder(ctx context.Context, id, folderID string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var folder sql.NullString
		if folderID != "" {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM folders WHERE id = ?`, folderID).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("folder %s: %w", folderID, model.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("lookup folder: %w", err)
			}
			folder = sql.NullString{String: folderID, Valid: true}
		}
		res, err := tx.ExecContext(ctx, `UPDATE sessions SET folder_id = ? WHERE id = ?`, folder, id)
		if err != nil {
			return fmt.Errorf("set session folder: %w", err)
		}
		return requireOne(res, "session", id)
	})
}

// Delete removes a session. Its messages are left in place.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireOne(res, "session", id)
}
