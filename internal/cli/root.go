// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-chat/internal/chat"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app is the state shared by every command: the loaded configuration, the
// logger and the way to reach storage and stream clients.
type app struct {
	configPath string
	dbPath     string
	logLevel   string
	offline    bool

	store  *config.FileStore
	cfg    *config.Config
	logger *log.Logger

	// registry overrides the clients built from the config.
	registry *chat.Registry
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rigrun-chat",
		Short: "Streaming chat client with local session history",
		Long: `rigrun-chat talks to OpenAI-compatible and Ollama endpoints, streams
replies as they are generated and keeps every conversation in a local
SQLite database.

Quick Start:
  rigrun-chat providers add openai --base-url https://api.openai.com/v1 --model gpt-4o-mini --api-key sk-...
  rigrun-chat chat                        # start a new conversation
  rigrun-chat sessions list               # browse history
  rigrun-chat search "deploy"             # search every session
  rigrun-chat serve                       # local HTTP API`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.rigrun-chat/config.toml)")
	flags.StringVar(&a.dbPath, "db", "", "database file (overrides storage.path)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.offline, "offline", false, "only talk to providers on localhost")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newChatCmd(a),
		newSessionsCmd(a),
		newFoldersCmd(a),
		newSearchCmd(a),
		newExportCmd(a),
		newProvidersCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		DisplayError(os.Stderr, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// load reads the configuration and builds the logger. Flags win over the
// file and the environment.
func (a *app) load() error {
	a.store = config.NewFileStore(a.configPath)
	cfg, err := a.store.Load()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Storage.Path = a.dbPath
	}
	if a.offline {
		cfg.Client.Offline = true
	}
	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger, err := logging.New(level, os.Stderr)
	if err != nil {
		return usageErrorf("--log-level", "%v", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// withDB opens the database for the duration of fn.
func (a *app) withDB(fn func(*storage.DB) error) error {
	db, err := storage.Open(a.cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// clients returns the stream clients for the current configuration.
func (a *app) clients() *chat.Registry {
	if a.registry != nil {
		return a.registry
	}
	return chat.DefaultRegistry(a.cfg, a.logger)
}

// call resolves the provider for a request: the current one when id is
// empty.
func (a *app) call(id string) (chat.Call, error) {
	if id == "" {
		return chat.CallFor(a.cfg), nil
	}
	p, ok := a.cfg.ProviderByID(id)
	if !ok {
		return chat.Call{}, fmt.Errorf("provider %q: %w", id, model.ErrNotFound)
	}
	cp := *p
	return chat.Call{Provider: &cp}, nil
}

// editableStore loads the config file without environment overrides so
// values from the environment are never written back.
func (a *app) editableStore() (*config.FileStore, *config.Config, error) {
	store := config.NewFileStore(a.configPath)
	store.SkipEnv = true
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
