// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-chat/internal/storage"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

func newFoldersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folders",
		Aliases: []string{"folder", "f"},
		Short:   "Group sessions into ordered folders",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List folders in sort order with their session counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				folders, err := db.Folders().List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return outputJSON(cmd.OutOrStdout(), folders)
				}
				w := cmd.OutOrStdout()
				if len(folders) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No folders."))
					return nil
				}
				for _, f := range folders {
					members, err := db.Sessions().ListByFolder(cmd.Context(), f.ID)
					if err != nil {
						return err
					}
					state := ""
					if f.Collapsed {
						state = DimStyle.Render(" (collapsed)")
					}
					fmt.Fprintf(w, "%3d  %s %s  %s%s\n",
						f.SortOrder,
						util.PadWidth(strings.TrimSpace(f.Icon+" "+f.Name), titleColumn-4),
						DimStyle.Render(fmt.Sprintf("%3d sessions", len(members))),
						DimStyle.Render(f.ID),
						state)
				}
				return nil
			})
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	var color, icon string
	create := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a folder at the end of the ordering",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			if name == "" {
				return usageErrorf("name", "must not be empty")
			}
			return a.withDB(func(db *storage.DB) error {
				f, err := db.Folders().Create(cmd.Context(), name, color, icon)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), f.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&color, "color", "", "folder color, e.g. #3b82f6")
	create.Flags().StringVar(&icon, "icon", "", "folder icon")

	rename := &cobra.Command{
		Use:   "rename <folder-id> <name>",
		Short: "Rename a folder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args[1:], " "))
			if name == "" {
				return usageErrorf("name", "must not be empty")
			}
			return a.withDB(func(db *storage.DB) error {
				return db.Folders().UpdateName(cmd.Context(), args[0], name)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <folder-id>",
		Short: "Delete a folder; its sessions become unfiled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				return db.Folders().Delete(cmd.Context(), args[0])
			})
		},
	}

	swap := &cobra.Command{
		Use:   "swap <folder-id> <folder-id>",
		Short: "Exchange the positions of two folders",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				return db.Folders().SwapOrder(cmd.Context(), args[0], args[1])
			})
		},
	}

	order := &cobra.Command{
		Use:   "order <folder-id> <position>",
		Short: "Move a folder to an unused position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseIndex("position", args[1])
			if err != nil {
				return err
			}
			return a.withDB(func(db *storage.DB) error {
				return db.Folders().UpdateSortOrder(cmd.Context(), args[0], n)
			})
		},
	}

	setCollapsed := func(use string, collapsed bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <folder-id>",
			Short: strings.ToUpper(use[:1]) + use[1:] + " a folder",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withDB(func(db *storage.DB) error {
					return db.Folders().SetCollapsed(cmd.Context(), args[0], collapsed)
				})
			},
		}
	}

	cmd.AddCommand(list, create, rename, del, swap, order, setCollapsed("collapse", true), setCollapsed("expand", false))
	return cmd
}
