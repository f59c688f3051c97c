// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-chat/internal/export"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format     string
		dir        string
		theme      string
		noMetadata bool
		toStdout   bool
	)
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session as markdown, html, json or yaml",
		Example: `  rigrun-chat export 6f1c... --format html --theme light
  rigrun-chat export 6f1c... --format json --stdout | jq .messages`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.Theme = theme
			opts.IncludeMetadata = !noMetadata
			exp, err := export.ForFormat(format, opts)
			if err != nil {
				return usageErrorf("--format", "%v", err)
			}

			return a.withDB(func(db *storage.DB) error {
				sess, err := db.Sessions().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				msgs, err := db.Messages().ListBySession(cmd.Context(), sess.ID)
				if err != nil {
					return err
				}

				if toStdout {
					data, err := exp.Export(sess, msgs)
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}

				path, err := export.WriteFile(dir, sess, msgs, exp, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s exported %d messages to %s\n",
					SuccessStyle.Render("[OK]"), len(msgs), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "one of "+strings.Join(export.Formats(), ", "))
	cmd.Flags().StringVarP(&dir, "dir", "o", ".", "output directory")
	cmd.Flags().StringVar(&theme, "theme", "dark", "html theme: dark or light")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "omit the session header")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write to stdout instead of a file")
	return cmd
}
