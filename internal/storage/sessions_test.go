// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

func sessionIDs(sessions []model.Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

func TestSessionStore_Create(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	sess, err := db.Sessions().Create(ctx, "s1", "")
	require.NoError(t, err)
	require.Equal(t, model.DefaultSessionTitle, sess.Title)
	require.True(t, sess.CreatedAt.Equal(sess.UpdatedAt))
	require.False(t, sess.IsPinned)
	require.Empty(t, sess.FolderID)

	got, err := db.Sessions().Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, sess, got)

	_, err = db.Sessions().Create(ctx, "s1", "again")
	require.ErrorIs(t, err, model.ErrDuplicateID)

	generated, err := db.Sessions().Create(ctx, "", "Generated")
	require.NoError(t, err)
	require.NotEmpty(t, generated.ID)
}

func TestSessionStore_ListPinnedFirstThenRecency(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Sessions()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, err := store.Create(ctx, id, id)
		require.NoError(t, err)
	}

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	updates := map[string]time.Duration{"a": 5, "b": 1, "c": 4, "d": 2, "e": 3}
	for id, h := range updates {
		require.NoError(t, store.UpdateUpdatedAt(ctx, id, base.Add(h*time.Hour)))
	}
	require.NoError(t, store.SetPinned(ctx, "b", true))
	require.NoError(t, store.SetPinned(ctx, "d", true))
	require.NoError(t, store.SetPinned(ctx, "d", true))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"d", "b", "a", "c", "e"}, sessionIDs(list))

	seenUnpinned := false
	for _, s := range list {
		if !s.IsPinned {
			seenUnpinned = true
		} else {
			require.False(t, seenUnpinned, "pinned session %s after an unpinned one", s.ID)
		}
	}
}

func TestSessionStore_UpdateUpdatedAtUsesCallerTimestamp(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Sessions().Create(ctx, "s", "t")
	require.NoError(t, err)

	ts := time.Date(2030, 1, 2, 3, 4, 5, 6, time.UTC)
	require.NoError(t, db.Sessions().UpdateUpdatedAt(ctx, "s", ts))
	got, err := db.Sessions().Get(ctx, "s")
	require.NoError(t, err)
	require.True(t, ts.Equal(got.UpdatedAt))

	require.ErrorIs(t, db.Sessions().UpdateUpdatedAt(ctx, "missing", ts), model.ErrNotFound)
}

func TestSessionStore_TitleFolderDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Sessions()

	_, err := store.Create(ctx, "s", "before")
	require.NoError(t, err)
	require.NoError(t, store.UpdateTitle(ctx, "s", "after"))
	require.ErrorIs(t, store.UpdateTitle(ctx, "missing", "x"), model.ErrNotFound)

	folder, err := db.Folders().Create(ctx, "Work", "blue", "briefcase")
	require.NoError(t, err)
	require.ErrorIs(t, store.SetFolder(ctx, "s", "no-such-folder"), model.ErrNotFound)
	require.NoError(t, store.SetFolder(ctx, "s", folder.ID))

	inFolder, err := store.ListByFolder(ctx, folder.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"s"}, sessionIDs(inFolder))

	require.NoError(t, store.SetFolder(ctx, "s", ""))
	loose, err := store.ListByFolder(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"s"}, sessionIDs(loose))

	// Deleting a session leaves its messages for the caller to clean up.
	appendMsg(t, db, "s", model.RoleUser, "orphan")
	require.NoError(t, store.Delete(ctx, "s"))
	require.ErrorIs(t, store.Delete(ctx, "s"), model.ErrNotFound)
	_, err = store.Get(ctx, "s")
	require.ErrorIs(t, err, model.ErrNotFound)

	count, err := db.Messages().CountBySession(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, total)
}
