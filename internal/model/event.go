// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"errors"
)

// EventType tags a StreamEvent.
type EventType string

const (
	EventText  EventType = "text"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Error codes carried by Error events.
const (
	CodeConfiguration      = "configuration"
	CodeNotFound           = "not_found"
	CodeNoMessages         = "no_messages"
	CodeNoAssistantMessage = "no_assistant_message"
	CodeBusy               = "busy"
	CodeCanceled           = "canceled"
	CodeTransport          = "transport"
	CodeUnknown            = "unknown"
)

// StreamEvent is one element of a reply stream: zero or more Text events
// followed by exactly one Done or Error. Never persisted.
type StreamEvent struct {
	Type      EventType `json:"type"`
	Content   string    `json:"content,omitempty"`
	Message   string    `json:"message,omitempty"`
	Code      string    `json:"code,omitempty"`
	Transient bool      `json:"transient,omitempty"`

	// Err is the classified error behind an Error event.
	Err error `json:"-"`
}

// TextEvent returns a Text event.
func TextEvent(content string) StreamEvent {
	return StreamEvent{Type: EventText, Content: content}
}

// DoneEvent returns the terminal success event.
func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

// IsTerminal reports whether the event ends the stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// AsError returns the error behind an Error event, or nil for other events.
func (e StreamEvent) AsError() error {
	if e.Type != EventError {
		return nil
	}
	if e.Err != nil {
		return e.Err
	}
	return errors.New(e.Message)
}

// ErrorEvent classifies err into a terminal Error event.
func ErrorEvent(err error) StreamEvent {
	if err == nil {
		err = &UnknownError{Err: errors.New("nil error")}
	}
	ev := StreamEvent{Type: EventError, Message: err.Error(), Err: err}

	var (
		transportErr *TransportError
		apiErr       *APIError
	)
	switch {
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		ev.Code = CodeCanceled
	case errors.Is(err, ErrConfiguration):
		ev.Code = CodeConfiguration
	case errors.Is(err, ErrBusy):
		ev.Code = CodeBusy
	case errors.Is(err, ErrNoMessages):
		ev.Code = CodeNoMessages
	case errors.Is(err, ErrNoAssistantMessage):
		ev.Code = CodeNoAssistantMessage
	case errors.Is(err, ErrNotFound):
		ev.Code = CodeNotFound
	case errors.As(err, &apiErr):
		ev.Code = apiErr.EventCode()
		ev.Transient = apiErr.Transient()
	case errors.As(err, &transportErr), errors.Is(err, context.DeadlineExceeded):
		ev.Code = CodeTransport
		ev.Transient = true
	default:
		ev.Code = CodeUnknown
	}
	return ev
}
