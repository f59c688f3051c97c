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

// snippetRunes bounds the content shown per search hit.
const snippetRunes = 100

func newSearchCmd(a *app) *cobra.Command {
	var (
		sessionID string
		limit     int
		from, to  string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Case-insensitive substring search over messages",
		Long: `Search message content, ignoring case.

With --session only that session is searched (oldest first). Otherwise every
session is searched, newest first, up to --limit results.`,
		Example: `  rigrun-chat search deploy
  rigrun-chat search "rate limit" --from 2025-01-01 --to 2025-01-31
  rigrun-chat search error --session 6f1c... --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			r, err := parseRange(from, to)
			if err != nil {
				return err
			}
			return a.withDB(func(db *storage.DB) error {
				var hits []model.Message
				if sessionID != "" {
					if _, err := db.Sessions().Get(cmd.Context(), sessionID); err != nil {
						return err
					}
					hits, err = db.Messages().Search(cmd.Context(), sessionID, query, r)
				} else {
					hits, err = db.Messages().SearchAll(cmd.Context(), query, limit, r)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return outputJSON(cmd.OutOrStdout(), hits)
				}
				printHits(cmd.OutOrStdout(), hits)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "search only this session")
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultSearchLimit, "maximum results across all sessions")
	cmd.Flags().StringVar(&from, "from", "", "earliest message date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "latest message date, inclusive")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func printHits(w io.Writer, hits []model.Message) {
	if len(hits) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No matches."))
		return
	}
	for _, m := range hits {
		style := UserStyle
		if m.Role == model.RoleAssistant {
			style = AssistantStyle
		}
		fmt.Fprintf(w, "%s %s %s  %s\n  %s\n",
			pinMarker(m.IsPinned),
			style.Render(util.PadWidth(m.Role.DisplayName(), 9)),
			DimStyle.Render(m.CreatedAt.Local().Format(time.DateTime)),
			DimStyle.Render(m.SessionID),
			util.TruncateRunes(util.SingleLine(m.Content), snippetRunes))
	}
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%d result(s)", len(hits))))
}
