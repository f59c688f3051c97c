// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the leveled key/value loggers used across
// rigrun-chat. Components receive a *log.Logger and add their own prefix via
// For; tests use Discard.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at the given level ("debug", "info",
// "warn", "error"). A nil writer means stderr.
func New(level string, w io.Writer) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	}), nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// For returns a child logger tagged with a component prefix. A nil parent
// yields a discard logger.
func For(parent *log.Logger, component string) *log.Logger {
	if parent == nil {
		return Discard()
	}
	return parent.WithPrefix(component)
}
