// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

func folderNames(folders []model.Folder) []string {
	out := make([]string, len(folders))
	for i, f := range folders {
		out[i] = f.Name
	}
	return out
}

func TestFolderStore_CreateAssignsNextSortOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Folders()

	a, err := store.Create(ctx, "A", "red", "star")
	require.NoError(t, err)
	b, err := store.Create(ctx, "B", "", "")
	require.NoError(t, err)
	require.Equal(t, a.SortOrder+1, b.SortOrder)

	require.NoError(t, store.UpdateSortOrder(ctx, a.ID, 10))
	c, err := store.Create(ctx, "C", "", "")
	require.NoError(t, err)
	require.Equal(t, 11, c.SortOrder)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A", "C"}, folderNames(list))

	_, err = store.Create(ctx, "", "", "")
	require.Error(t, err)
}

func TestFolderStore_UpdateSortOrderConflict(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Folders()

	a, err := store.Create(ctx, "A", "", "")
	require.NoError(t, err)
	b, err := store.Create(ctx, "B", "", "")
	require.NoError(t, err)

	require.ErrorIs(t, store.UpdateSortOrder(ctx, a.ID, b.SortOrder), model.ErrDuplicateSortOrder)
	require.ErrorIs(t, store.UpdateSortOrder(ctx, "missing", 99), model.ErrNotFound)
}

func TestFolderStore_UpdateFields(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Folders()

	f, err := store.Create(ctx, "Old", "red", "x")
	require.NoError(t, err)
	require.NoError(t, store.UpdateName(ctx, f.ID, "New"))
	require.NoError(t, store.UpdateColor(ctx, f.ID, "green"))
	require.NoError(t, store.UpdateIcon(ctx, f.ID, "leaf"))
	require.ErrorIs(t, store.UpdateName(ctx, "missing", "n"), model.ErrNotFound)

	got, err := store.Get(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, "New", got.Name)
	require.Equal(t, "green", got.Color)
	require.Equal(t, "leaf", got.Icon)
}

func TestFolderStore_SwapOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Folders()

	a, err := store.Create(ctx, "A", "", "")
	require.NoError(t, err)
	b, err := store.Create(ctx, "B", "", "")
	require.NoError(t, err)
	_, err = store.Create(ctx, "C", "", "")
	require.NoError(t, err)

	require.NoError(t, store.SwapOrder(ctx, a.ID, b.ID))
	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A", "C"}, folderNames(list))

	gotA, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, b.SortOrder, gotA.SortOrder)

	require.ErrorIs(t, store.SwapOrder(ctx, a.ID, "missing"), model.ErrNotFound)
	// Failed swap leaves ordering untouched.
	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A", "C"}, folderNames(list))

	require.NoError(t, store.SwapOrder(ctx, a.ID, a.ID))
}

func TestFolderStore_DeleteReleasesSessions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	folder, err := db.Folders().Create(ctx, "Trips", "", "")
	require.NoError(t, err)
	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := db.Sessions().Create(ctx, id, id)
		require.NoError(t, err)
	}
	require.NoError(t, db.Sessions().SetFolder(ctx, "s1", folder.ID))
	require.NoError(t, db.Sessions().SetFolder(ctx, "s2", folder.ID))
	require.NoError(t, db.Folders().SetCollapsed(ctx, folder.ID, true))

	before, err := db.Sessions().Count(ctx)
	require.NoError(t, err)

	require.NoError(t, db.Folders().Delete(ctx, folder.ID))

	after, err := db.Sessions().Count(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)

	for _, id := range []string{"s1", "s2"} {
		sess, err := db.Sessions().Get(ctx, id)
		require.NoError(t, err)
		require.Empty(t, sess.FolderID, "session %s still references deleted folder", id)
	}

	_, err = db.Folders().Get(ctx, folder.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	collapsed, err := db.Folders().IsCollapsed(ctx, folder.ID)
	require.NoError(t, err)
	require.False(t, collapsed)

	require.ErrorIs(t, db.Folders().Delete(ctx, folder.ID), model.ErrNotFound)
}

func TestFolderStore_Collapsed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Folders()

	f, err := store.Create(ctx, "F", "", "")
	require.NoError(t, err)

	collapsed, err := store.IsCollapsed(ctx, f.ID)
	require.NoError(t, err)
	require.False(t, collapsed)

	require.NoError(t, store.SetCollapsed(ctx, f.ID, true))
	collapsed, err = store.IsCollapsed(ctx, f.ID)
	require.NoError(t, err)
	require.True(t, collapsed)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.True(t, list[0].Collapsed)

	require.NoError(t, store.SetCollapsed(ctx, f.ID, false))
	collapsed, err = store.IsCollapsed(ctx, f.ID)
	require.NoError(t, err)
	require.False(t, collapsed)

	require.ErrorIs(t, store.SetCollapsed(ctx, "missing", true), model.ErrNotFound)
}
