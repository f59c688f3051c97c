// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrConfiguration means no usable provider is selected.
	ErrConfiguration = errors.New("no provider configured")

	// ErrNotFound means a session, message or folder does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID means a row with the same id already exists.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrDuplicateSortOrder means another folder already uses the sort order.
	ErrDuplicateSortOrder = errors.New("duplicate folder sort order")

	// ErrNoMessages means regeneration was requested on an empty session.
	ErrNoMessages = errors.New("session has no messages")

	// ErrNoAssistantMessage means the session has no assistant reply to regenerate.
	ErrNoAssistantMessage = errors.New("session has no assistant reply")

	// ErrBusy means the session already has a request in flight.
	ErrBusy = errors.New("session already has a request in flight")

	// ErrCanceled means the in-flight request was canceled.
	ErrCanceled = errors.New("request canceled")
)

// =============================================================================
// TYPED ERRORS
// =============================================================================

// TransportError is a connection-level failure (dial, TLS, reset, timeout,
// broken stream). It is always transient.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transient always returns true.
func (e *TransportError) Transient() bool { return true }

// APIError is a non-2xx response or an error reported inside the stream.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether the status is in the 5xx range.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

// EventCode returns the code carried by the Error event.
func (e *APIError) EventCode() string {
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api_%d", e.StatusCode)
}

// UnknownError wraps anything that fits no other class. Never transient.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unexpected error: %v", e.Err)
}

func (e *UnknownError) Unwrap() error { return e.Err }

// CodeForStatus maps an HTTP status to an error code when the response body
// does not provide one.
func CodeForStatus(status int) string {
	switch {
	case status == 400:
		return "bad_request"
	case status == 401:
		return "unauthorized"
	case status == 403:
		return "forbidden"
	case status == 404:
		return "model_not_found"
	case status == 408:
		return "timeout"
	case status == 413:
		return "context_too_long"
	case status == 429:
		return "rate_limit"
	case status >= 500 && status <= 599:
		return "server_error"
	default:
		return ""
	}
}
