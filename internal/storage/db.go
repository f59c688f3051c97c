// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// =============================================================================
// DATABASE HANDLE
// =============================================================================

// DB owns the SQLite connection pool and hands out the stores.
type DB struct {
	db    *sql.DB
	path  string
	clock util.Clock

	messages *MessageStore
	sessions *SessionStore
	folders  *FolderStore
}

// Option configures Open.
type Option func(*DB)

// WithClock replaces the clock used for store-generated timestamps.
func WithClock(c util.Clock) Option {
	return func(d *DB) {
		d.clock = c
	}
}

// maxOpenConns keeps a few connections so readers run in parallel under WAL.
const maxOpenConns = 4

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, opts ...Option) (*DB, error) {
	if path == "" {
		return nil, errors.New("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "temp_store(MEMORY)")
	q.Set("_txlock", "immediate")
	dsn := "file:" + path + "?" + q.Encode()

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(0)

	d := &DB{db: sqlDB, path: path, clock: util.DefaultClock()}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.initSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.messages = &MessageStore{db: sqlDB, clock: d.clock}
	d.sessions = &SessionStore{db: sqlDB, clock: d.clock}
	d.folders = &FolderStore{db: sqlDB, clock: d.clock}
	return d, nil
}

func (d *DB) initSchema() error {
	if _, err := d.db.Exec(Schema); err != nil {
		return err
	}
	_, err := d.db.Exec(InitMetadata)
	return err
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Messages returns the message store.
func (d *DB) Messages() *MessageStore { return d.messages }

// Sessions returns the session store.
func (d *DB) Sessions() *SessionStore { return d.sessions }

// Folders returns the folder store.
func (d *DB) Folders() *FolderStore { return d.folders }

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// =============================================================================
// HELPERS
// =============================================================================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// withTx runs fn inside a BEGIN IMMEDIATE transaction.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// requireOne maps a zero-row update or delete to ErrNotFound.
func requireOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, model.ErrNotFound)
	}
	return nil
}

// isConstraint reports whether err is a SQLite constraint violation that
// mentions column (e.g. "folders.sort_order"). An empty column matches any.
func isConstraint(err error, column string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	return column == "" || strings.Contains(se.Error(), column)
}
