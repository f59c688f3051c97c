// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/rigrun-chat/internal/util"
)

// Store loads and saves the configuration.
type Store interface {
	Load() (*Config, error)
	Save(cfg *Config) error
}

// FileStore keeps the configuration in a TOML file.
type FileStore struct {
	// Path of the TOML file.
	Path string

	// SkipEnv disables ApplyEnvOverrides on Load. Commands that edit and save
	// the file set it so environment values are not written back.
	SkipEnv bool
}

// NewFileStore returns a store for path, or for ~/.rigrun-chat/config.toml
// when path is empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		if p, err := ConfigPathTOML(); err == nil {
			path = p
		} else {
			path = "config.toml"
		}
	}
	return &FileStore{Path: path}
}

// Load reads the file (a missing file yields defaults), applies environment
// overrides and validates the result.
func (s *FileStore) Load() (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if !s.SkipEnv {
		cfg.ApplyEnvOverrides()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save validates cfg and writes it atomically with 0600 permissions.
func (s *FileStore) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return SaveTOML(cfg, s.Path)
}

// LoadTOML decodes the TOML file at path into cfg and fills defaults.
func LoadTOML(cfg *Config, path string) error {
	if info, err := os.Stat(path); err == nil && info.Mode().Perm()&0o077 != 0 {
		// API keys live in this file; tighten permissions when possible.
		_ = os.Chmod(path, 0600)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// SaveTOML encodes cfg to path with a header comment.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rigrun-chat configuration file\n")
	buf.WriteString("# Generated by rigrun-chat - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// watchDebounce coalesces the burst of events an editor or an atomic rename
// produces.
const watchDebounce = 150 * time.Millisecond

// Watch calls onChange with a freshly loaded config every time the file is
// written, created or replaced, until ctx is done. The parent directory is
// watched so atomic renames are observed.
func (s *FileStore) Watch(ctx context.Context, onChange func(*Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.Path)
	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				onChange(s.Load())
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				onChange(nil, fmt.Errorf("config watcher: %w", werr))
			}
		}
	}()
	return nil
}
