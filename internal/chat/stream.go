// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// EventBuffer is the capacity of a Stream's event channel.
const EventBuffer = 64

// Stream is the caller's handle on one send or regenerate request.
type Stream struct {
	events   chan model.StreamEvent
	detached chan struct{}
	once     sync.Once
	cancel   context.CancelFunc
}

func newStream() *Stream {
	return &Stream{
		events:   make(chan model.StreamEvent, EventBuffer),
		detached: make(chan struct{}),
	}
}

// Events returns the event channel. It delivers zero or more Text events,
// then exactly one Done or Error, and is closed after the terminal event.
func (s *Stream) Events() <-chan model.StreamEvent {
	return s.events
}

// Wait drains the stream and returns the concatenated text and the
// terminal event.
func (s *Stream) Wait() (string, model.StreamEvent) {
	var sb strings.Builder
	for ev := range s.events {
		switch ev.Type {
		case model.EventText:
			sb.WriteString(ev.Content)
		case model.EventDone, model.EventError:
			// Channel closes right after the terminal event.
			for range s.events {
			}
			return sb.String(), ev
		}
	}
	return sb.String(), model.ErrorEvent(&model.UnknownError{Err: errors.New("stream closed without a terminal event")})
}

// Close detaches the consumer and cancels the request if it is still
// running. Events not yet read are dropped.
func (s *Stream) Close() {
	s.once.Do(func() {
		close(s.detached)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// send delivers a non-terminal event unless the consumer has detached.
func (s *Stream) send(ev model.StreamEvent) {
	select {
	case s.events <- ev:
	case <-s.detached:
	}
}

// finish delivers the terminal event and closes the channel.
func (s *Stream) finish(ev model.StreamEvent) {
	s.send(ev)
	close(s.events)
}

// failed returns a Stream that holds only the Error event for err.
func failed(err error) *Stream {
	s := newStream()
	s.finish(model.ErrorEvent(err))
	return s
}
