// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// FolderStore persists folders and their collapsed state. Sort orders are
// unique; the collapsed flag lives in its own keyed table.
type FolderStore struct {
	db    *sql.DB
	clock util.Clock
}

const folderSelect = `
SELECT f.id, f.name, f.color, f.icon, f.created_at, f.sort_order, COALESCE(s.collapsed, 0)
FROM folders f LEFT JOIN folder_state s ON s.folder_id = f.id`

func scanFolder(s scanner) (model.Folder, error) {
	var (
		f         model.Folder
		createdAt int64
		collapsed int
	)
	if err := s.Scan(&f.ID, &f.Name, &f.Color, &f.Icon, &createdAt, &f.SortOrder, &collapsed); err != nil {
		return model.Folder{}, err
	}
	f.CreatedAt = fromNanos(createdAt)
	f.Collapsed = collapsed != 0
	return f, nil
}

// Create adds a folder at the end of the ordering (max sort order + 1).
func (s *FolderStore) Create(ctx context.Context, name, color, icon string) (model.Folder, error) {
	if name == "" {
		return model.Folder{}, errors.New("create folder: name is required")
	}
	f := model.Folder{
		ID:        model.NewID(),
		Name:      name,
		Color:     color,
		Icon:      icon,
		CreatedAt: fromNanos(toNanos(s.clock.Now())),
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM folders`).Scan(&f.SortOrder); err != nil {
			return fmt.Errorf("next sort order: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO folders (id, name, color, icon, created_at, sort_order) VALUES (?, ?, ?, ?, ?, ?)`,
			f.ID, f.Name, f.Color, f.Icon, toNanos(f.CreatedAt), f.SortOrder)
		if err != nil {
			return fmt.Errorf("create folder: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Folder{}, err
	}
	return f, nil
}

// Get returns a single folder.
func (s *FolderStore) Get(ctx context.Context, id string) (model.Folder, error) {
	f, err := scanFolder(s.db.QueryRowContext(ctx, folderSelect+` WHERE f.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Folder{}, fmt.Errorf("folder %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Folder{}, fmt.Errorf("get folder: %w", err)
	}
	return f, nil
}

// List returns all folders in ascending sort order.
func (s *FolderStore) List(ctx context.Context) ([]model.Folder, error) {
	rows, err := s.db.QueryContext(ctx, folderSelect+` ORDER BY f.sort_order ASC`)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	folders := []model.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *FolderStore) updateColumn(ctx context.Context, id, column, value string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE folders SET `+column+` = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("update folder %s: %w", column, err)
	}
	return requireOne(res, "folder", id)
}

// UpdateName renames a folder.
func (s *FolderStore) UpdateName(ctx context.Context, id, name string) error {
	if name == "" {
		return errors.New("update folder: name is required")
	}
	return s.updateColumn(ctx, id, "name", name)
}

// UpdateColor changes a folder's color.
func (s *FolderStore) UpdateColor(ctx context.Context, id, color string) error {
	return s.updateColumn(ctx, id, "color", color)
}

// UpdateIcon changes a folder's icon.
func (s *FolderStore) UpdateIcon(ctx context.Context, id, icon string) error {
	return s.updateColumn(ctx, id, "icon", icon)
}

// UpdateSortOrder moves a folder to order. Returns ErrDuplicateSortOrder if
// another folder already holds it.
func (s *FolderStore) UpdateSortOrder(ctx context.Context, id string, order int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE folders SET sort_order = ? WHERE id = ?`, order, id)
	if err != nil {
		if isConstraint(err, "folders.sort_order") {
			return fmt.Errorf("sort order %d: %w", order, model.ErrDuplicateSortOrder)
		}
		return fmt.Errorf("update folder sort order: %w", err)
	}
	return requireOne(res, "folder", id)
}

// SwapOrder exchanges the sort orders of folders a and b in one transaction.
func (s *FolderStore) SwapOrder(ctx context.Context, a, b string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		orderOf := func(id string) (int, error) {
			var order int
			err := tx.QueryRowContext(ctx, `SELECT sort_order FROM folders WHERE id = ?`, id).Scan(&order)
			if errors.Is(err, sql.ErrNoRows) {
				return 0, fmt.Errorf("folder %s: %w", id, model.ErrNotFound)
			}
			return order, err
		}
		orderA, err := orderOf(a)
		if err != nil {
			return err
		}
		orderB, err := orderOf(b)
		if err != nil {
			return err
		}
		if a == b {
			return nil
		}

		// Park a on a free value so the UNIQUE index never sees a collision.
		var parked int
		if err := tx.QueryRowContext(ctx, `SELECT MIN(sort_order) - 1 FROM folders`).Scan(&parked); err != nil {
			return fmt.Errorf("swap folders: %w", err)
		}
		steps := []struct {
			id    string
			order int
		}{{a, parked}, {b, orderA}, {a, orderB}}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx,
				`UPDATE folders SET sort_order = ? WHERE id = ?`, step.order, step.id); err != nil {
				return fmt.Errorf("swap folders: %w", err)
			}
		}
		return nil
	})
}

// Delete removes a folder. Member sessions are moved out of the folder in
// the same transaction; no session is deleted.
func (s *FolderStore) Delete(ctx context.Context, id string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET folder_id = NULL WHERE folder_id = ?`, id); err != nil {
			return fmt.Errorf("release folder sessions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM folder_state WHERE folder_id = ?`, id); err != nil {
			return fmt.Errorf("delete folder state: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete folder: %w", err)
		}
		return requireOne(res, "folder", id)
	})
}

// SetCollapsed records whether a folder is collapsed.
func (s *FolderStore) SetCollapsed(ctx context.Context, id string, collapsed bool) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM folders WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("folder %s: %w", id, model.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lookup folder: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO folder_state (folder_id, collapsed) VALUES (?, ?)
			 ON CONFLICT(folder_id) DO UPDATE SET collapsed = excluded.collapsed`,
			id, boolToInt(collapsed))
		if err != nil {
			return fmt.Errorf("set folder collapsed: %w", err)
		}
		return nil
	})
}

// IsCollapsed reports the collapsed flag; folders without state are expanded.
func (s *FolderStore) IsCollapsed(ctx context.Context, id string) (bool, error) {
	var collapsed int
	err := s.db.QueryRowContext(ctx,
		`SELECT collapsed FROM folder_state WHERE folder_id = ?`, id).Scan(&collapsed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("folder collapsed: %w", err)
	}
	return collapsed != 0, nil
}
