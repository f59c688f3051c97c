// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists sessions, messages and folders in SQLite.
//
// # Key Types
//
//   - DB: the database handle, schema owner and store factory
//   - MessageStore: message CRUD, pinning and case-insensitive search
//   - SessionStore: session CRUD with pinned-first, most-recent ordering
//   - FolderStore: flat folders with unique manual sort order
//
// # Usage
//
//	db, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	sess, err := db.Sessions().Create(ctx, "", "Trip planning")
//	msgs, err := db.Messages().ListBySession(ctx, sess.ID)
//
// # Concurrency
//
// The database runs in WAL mode with a busy timeout and a small connection
// pool, so stores are safe for concurrent use from many goroutines. Reads do
// not block each other; writes are serialized by SQLite.
package storage
