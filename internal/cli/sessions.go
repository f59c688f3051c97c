// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/storage"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// titleColumn is the display width of the title column in listings.
const titleColumn = 40

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "s"},
		Short:   "Manage conversations",
	}

	var folderID string
	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, pinned first then most recently updated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				var sessions []model.Session
				var err error
				if cmd.Flags().Changed("folder") {
					sessions, err = db.Sessions().ListByFolder(cmd.Context(), folderID)
				} else {
					sessions, err = db.Sessions().List(cmd.Context())
				}
				if err != nil {
					return err
				}
				if asJSON {
					return outputJSON(cmd.OutOrStdout(), sessions)
				}
				printSessions(cmd.OutOrStdout(), sessions, time.Now())
				return nil
			})
		},
	}
	list.Flags().StringVar(&folderID, "folder", "", "only sessions in this folder (empty for unfiled)")
	list.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	var showJSON bool
	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				sess, err := db.Sessions().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				msgs, err := db.Messages().ListBySession(cmd.Context(), sess.ID)
				if err != nil {
					return err
				}
				if showJSON {
					return outputJSON(cmd.OutOrStdout(), struct {
						Session  model.Session   `json:"session"`
						Messages []model.Message `json:"messages"`
					}{sess, msgs})
				}
				printTranscript(cmd.OutOrStdout(), sess, msgs)
				return nil
			})
		},
	}
	show.Flags().BoolVar(&showJSON, "json", false, "output JSON")

	var newID string
	create := &cobra.Command{
		Use:   "new [title]",
		Short: "Create an empty session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				sess, err := db.Sessions().Create(cmd.Context(), newID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&newID, "id", "", "explicit session id")

	rename := &cobra.Command{
		Use:   "rename <session-id> <title>",
		Short: "Change a session's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return usageErrorf("title", "must not be empty")
			}
			return a.withDB(func(db *storage.DB) error {
				return db.Sessions().UpdateTitle(cmd.Context(), args[0], title)
			})
		},
	}

	setPinned := func(use string, pinned bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <session-id>",
			Short: strings.ToUpper(use[:1]) + use[1:] + " a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withDB(func(db *storage.DB) error {
					return db.Sessions().SetPinned(cmd.Context(), args[0], pinned)
				})
			},
		}
	}

	move := &cobra.Command{
		Use:   "move <session-id> [folder-id]",
		Short: "Put a session in a folder, or take it out when no folder is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 2 {
				folder = args[1]
			}
			return a.withDB(func(db *storage.DB) error {
				return db.Sessions().SetFolder(cmd.Context(), args[0], folder)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *storage.DB) error {
				if _, err := db.Sessions().Get(cmd.Context(), args[0]); err != nil {
					return err
				}
				n, err := db.Messages().DeleteBySession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := db.Sessions().Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted session %s (%d messages)\n",
					SuccessStyle.Render("[OK]"), args[0], n)
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, create, rename, setPinned("pin", true), setPinned("unpin", false), move, del)
	return cmd
}

// printSessions renders one row per session: pin marker, title, id, age.
func printSessions(w io.Writer, sessions []model.Session, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No sessions."))
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s %s  %s  %s\n",
			pinMarker(s.IsPinned),
			util.PadWidth(s.Title, titleColumn),
			DimStyle.Render(s.ID),
			DimStyle.Render(formatAge(s.UpdatedAt, now)))
	}
}

// printTranscript writes a session header followed by every message.
func printTranscript(w io.Writer, s model.Session, msgs []model.Message) {
	fmt.Fprintln(w, TitleStyle.Render(s.Title))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Session"), ValueStyle.Render(s.ID))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Created"), ValueStyle.Render(s.CreatedAt.Local().Format(time.DateTime)))
	fmt.Fprintf(w, "%s%d\n", RenderLabel("Messages"), len(msgs))
	if s.InFolder() {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Folder"), ValueStyle.Render(s.FolderID))
	}
	fmt.Fprintln(w, RenderSeparator())

	for _, m := range msgs {
		style := UserStyle
		if m.Role == model.RoleAssistant {
			style = AssistantStyle
		}
		fmt.Fprintf(w, "\n%s %s %s\n", pinMarker(m.IsPinned), style.Render(m.Role.DisplayName()),
			DimStyle.Render(m.CreatedAt.Local().Format(time.DateTime)))
		fmt.Fprintln(w, m.Content)
	}
}
