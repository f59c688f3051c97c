// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-chat/internal/chat"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/server"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API (REST, SSE and WebSocket)",
		Long: `Serve the chat core over HTTP.

Replies stream as Server-Sent Events from POST /api/sessions/{id}/send or over
a WebSocket at /api/sessions/{id}/ws. When server.token is set every /api
request needs "Authorization: Bearer <token>".

The config file is watched: provider, token and model changes apply to new
requests without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withDB(func(db *storage.DB) error {
				orch := chat.New(db, a.clients(), chat.WithLogger(logging.For(a.logger, "chat")))
				defer orch.Close()

				srv := server.New(db, orch, a.cfg, server.WithLogger(logging.For(a.logger, "server")))
				if !noWatch {
					if err := a.watchConfig(ctx, srv); err != nil {
						a.logger.Warn("config reload disabled", "err", err)
					}
				}
				return srv.ListenAndServe(ctx, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the config file on change")
	return cmd
}

// watchConfig pushes every valid edit of the config file into srv. Invalid
// edits are logged and the previous config stays active.
func (a *app) watchConfig(ctx context.Context, srv *server.Server) error {
	return a.store.Watch(ctx, func(cfg *config.Config, err error) {
		if err != nil {
			a.logger.Error("config reload failed", "path", a.store.Path, "err", err)
			return
		}
		if a.dbPath != "" {
			cfg.Storage.Path = a.dbPath
		}
		srv.SetConfig(cfg)
		a.logger.Info("config reloaded", "path", a.store.Path, "provider", cfg.CurrentProvider)
	})
}
