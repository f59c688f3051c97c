// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

func TestMessageStore_RejectsStoredInvalidRole(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, content_folded, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"m1", "s", "system", "hi", "hi", time.Now().UnixNano())
	require.NoError(t, err)

	_, err = db.Messages().Get(ctx, "m1")
	require.ErrorContains(t, err, `invalid role "system"`)

	_, err = db.Messages().ListBySession(ctx, "s")
	require.Error(t, err)
}

func TestMessageStore_AppendRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created := time.Date(2025, 5, 6, 7, 8, 9, 123456789, time.UTC)
	in := model.Message{
		ID:        "m-1",
		SessionID: "s-1",
		Role:      model.RoleAssistant,
		Content:   "Grüße, 世界 🌍",
		CreatedAt: created,
	}
	_, err := db.Messages().Append(ctx, in)
	require.NoError(t, err)

	got, err := db.Messages().Get(ctx, "m-1")
	require.NoError(t, err)
	require.Equal(t, in.ID, got.ID)
	require.Equal(t, in.SessionID, got.SessionID)
	require.Equal(t, in.Role, got.Role)
	require.Equal(t, in.Content, got.Content)
	require.True(t, created.Equal(got.CreatedAt), "createdAt %v != %v", got.CreatedAt, created)
	require.False(t, got.IsPinned)
}

func TestMessageStore_AppendDuplicateID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	msg := model.Message{ID: "dup", SessionID: "s", Role: model.RoleUser, Content: "a"}
	_, err := db.Messages().Append(ctx, msg)
	require.NoError(t, err)

	_, err = db.Messages().Append(ctx, msg)
	require.ErrorIs(t, err, model.ErrDuplicateID)
}

func TestMessageStore_AppendRejectsInvalidRole(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Messages().Append(context.Background(), model.Message{SessionID: "s", Role: "system"})
	require.Error(t, err)
}

func TestMessageStore_ListBySessionAscending(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	const n = 25
	for i := 0; i < n; i++ {
		appendMsg(t, db, "s", model.RoleUser, fmt.Sprintf("msg %d", i))
		appendMsg(t, db, "other", model.RoleUser, "noise")
	}

	msgs, err := db.Messages().ListBySession(ctx, "s")
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i := 1; i < len(msgs); i++ {
		require.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt), "not strictly ascending at %d", i)
	}

	count, err := db.Messages().CountBySession(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, n, count)
}

func TestMessageStore_SearchEmptyQuery(t *testing.T) {
	db := openTestDB(t)
	appendMsg(t, db, "s", model.RoleUser, "anything at all")

	got, err := db.Messages().Search(context.Background(), "s", "", model.DateRange{})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	all, err := db.Messages().SearchAll(context.Background(), "", 10, model.DateRange{})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestMessageStore_SearchCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a := appendMsg(t, db, "s", model.RoleUser, "hello there")
	b := appendMsg(t, db, "s", model.RoleAssistant, "Well, HeLLo to you")
	appendMsg(t, db, "s", model.RoleUser, "goodbye")

	lower, err := db.Messages().Search(ctx, "s", "Hello", model.DateRange{})
	require.NoError(t, err)
	upper, err := db.Messages().Search(ctx, "s", "HELLO", model.DateRange{})
	require.NoError(t, err)

	require.Equal(t, []string{a.ID, b.ID}, ids(lower))
	require.Equal(t, ids(lower), ids(upper))
}

func TestMessageStore_SearchUnicodeFolding(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tests := []struct {
		content string
		query   string
	}{
		{"Die STRASSE ist lang", "straße"},
		{"ΟΔΥΣΣΕΥΣ", "οδυσσευς"},
		{"Привет, МИР", "мир"},
		{"日本語のテキスト", "テキスト"},
	}
	for i, tc := range tests {
		sessionID := fmt.Sprintf("u%d", i)
		m := appendMsg(t, db, sessionID, model.RoleUser, tc.content)
		got, err := db.Messages().Search(ctx, sessionID, tc.query, model.DateRange{})
		require.NoError(t, err)
		require.Equal(t, []string{m.ID}, ids(got), "query %q on %q", tc.query, tc.content)
	}
}

func TestMessageStore_SearchDateRangeInclusive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var all []model.Message
	for i := 0; i < 5; i++ {
		m, err := db.Messages().Append(ctx, model.Message{
			SessionID: "s",
			Role:      model.RoleUser,
			Content:   "match",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		all = append(all, m)
	}

	start := base.Add(1 * time.Hour)
	end := base.Add(3 * time.Hour)
	got, err := db.Messages().Search(ctx, "s", "MATCH", model.DateRange{Start: &start, End: &end})
	require.NoError(t, err)
	require.Equal(t, []string{all[1].ID, all[2].ID, all[3].ID}, ids(got))

	got, err = db.Messages().SearchAll(ctx, "match", 10, model.DateRange{Start: &end})
	require.NoError(t, err)
	require.Equal(t, []string{all[4].ID, all[3].ID}, ids(got))
}

func TestMessageStore_SearchAllLimitAndOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		appendMsg(t, db, fmt.Sprintf("s%d", i%3), model.RoleUser, fmt.Sprintf("needle %d", i))
	}

	for _, limit := range []int{1, 4, 10, 20} {
		got, err := db.Messages().SearchAll(ctx, "NEEDLE", limit, model.DateRange{})
		require.NoError(t, err)
		require.LessOrEqual(t, len(got), limit)
		require.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
			return got[i].CreatedAt.After(got[j].CreatedAt)
		}), "results must be newest first")
	}

	got, err := db.Messages().SearchAll(ctx, "needle", 4, model.DateRange{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, "needle 9", got[0].Content)

	for _, limit := range []int{0, -1} {
		got, err := db.Messages().SearchAll(ctx, "needle", limit, model.DateRange{})
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Empty(t, got, "limit %d", limit)
	}
}

func TestMessageStore_Pinning(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Messages()

	m1 := appendMsg(t, db, "s", model.RoleUser, "one")
	appendMsg(t, db, "s", model.RoleAssistant, "two")
	m3 := appendMsg(t, db, "s", model.RoleUser, "three")

	require.NoError(t, store.SetPinned(ctx, m1.ID, true))
	require.NoError(t, store.SetPinned(ctx, m3.ID, true))
	// Idempotent.
	require.NoError(t, store.SetPinned(ctx, m3.ID, true))

	pinned, err := store.ListPinned(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, []string{m3.ID, m1.ID}, ids(pinned))
	for _, m := range pinned {
		require.True(t, m.IsPinned)
	}

	require.NoError(t, store.SetPinned(ctx, m1.ID, false))
	require.NoError(t, store.SetPinned(ctx, m1.ID, false))
	pinned, err = store.ListPinned(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, []string{m3.ID}, ids(pinned))

	require.ErrorIs(t, store.SetPinned(ctx, "missing", true), model.ErrNotFound)
}

func TestMessageStore_UpdateAndDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Messages()

	m := appendMsg(t, db, "s", model.RoleUser, "old text")
	appendMsg(t, db, "s", model.RoleAssistant, "reply")
	appendMsg(t, db, "other", model.RoleUser, "keep")

	require.NoError(t, store.UpdateContent(ctx, m.ID, "Brand NEW text"))
	got, err := store.Search(ctx, "s", "new", model.DateRange{})
	require.NoError(t, err)
	require.Equal(t, []string{m.ID}, ids(got))
	require.ErrorIs(t, store.UpdateContent(ctx, "missing", "x"), model.ErrNotFound)

	require.NoError(t, store.Delete(ctx, m.ID))
	require.ErrorIs(t, store.Delete(ctx, m.ID), model.ErrNotFound)
	_, err = store.Get(ctx, m.ID)
	require.ErrorIs(t, err, model.ErrNotFound)

	n, err := store.DeleteBySession(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	count, err := store.CountBySession(ctx, "other")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMessageStore_LastByRole(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Messages().LastByRole(ctx, "s", model.RoleAssistant)
	require.ErrorIs(t, err, model.ErrNotFound)

	appendMsg(t, db, "s", model.RoleUser, "q1")
	a1 := appendMsg(t, db, "s", model.RoleAssistant, "a1")
	appendMsg(t, db, "s", model.RoleUser, "q2")

	last, err := db.Messages().LastByRole(ctx, "s", model.RoleAssistant)
	require.NoError(t, err)
	require.Equal(t, a1.ID, last.ID)
}
