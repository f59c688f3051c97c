// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/rigrun-chat/internal/commands"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/model"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitBusyError     = 9
)

// UsageError reports a bad argument or flag value.
type UsageError struct {
	Field  string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func usageErrorf(field, format string, args ...any) error {
	return &UsageError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usage   *UsageError
		badArg  *commands.ValidationError
		unknown *commands.UnknownCommandError
	)
	if errors.As(err, &usage) || errors.As(err, &badArg) || errors.As(err, &unknown) {
		return ExitUsageError
	}
	var invalid config.ValidateErrors
	if errors.As(err, &invalid) || errors.Is(err, model.ErrConfiguration) {
		return ExitConfigError
	}
	var transport *model.TransportError
	if errors.As(err, &transport) {
		return ExitNetworkError
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, model.ErrBusy):
		return ExitBusyError
	}
	return ExitGeneralError
}

// DisplayError prints err with the error style.
func DisplayError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
}
