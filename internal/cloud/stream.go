// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxChunkSize is the maximum allowed size for a single SSE line (1MB).
const MaxChunkSize = 1024 * 1024

var doneMarker = []byte("[DONE]")

// errChunkTooLarge is returned when a single SSE line exceeds MaxChunkSize.
var errChunkTooLarge = errors.New("sse line exceeds maximum size")

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk is one decoded chat.completion.chunk.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error,omitempty"`
}

// GetContent returns the content from the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// AsError converts an in-band error chunk into an APIError, or returns nil.
func (c *StreamChunk) AsError() error {
	if c.Error == nil {
		return nil
	}
	apiErr := &model.APIError{
		StatusCode: statusFromCode(c.Error.Code),
		Code:       errorCode(c.Error.Code, c.Error.Type),
		Message:    c.Error.Message,
	}
	if apiErr.Code == "" {
		apiErr.Code = model.CodeForStatus(apiErr.StatusCode)
	}
	if apiErr.Code == "" {
		apiErr.Code = "stream_error"
	}
	return apiErr
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReaderSize(r, 32*1024),
	}
}

// readLine reads one line, enforcing MaxChunkSize.
func (s *SSEReader) readLine() ([]byte, error) {
	var line []byte
	for {
		frag, isPrefix, err := s.reader.ReadLine()
		if err != nil {
			return nil, err
		}
		line = append(line, frag...)
		if len(line) > MaxChunkSize {
			return nil, errChunkTooLarge
		}
		if !isPrefix {
			return line, nil
		}
	}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type, data, and any error.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.readLine()
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			return "", nil, err
		}

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[5:]
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			dataLines = append(dataLines, data)
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// STREAM PROCESSING
// =============================================================================

// processStream reads SSE events until [DONE], end of body, or an error.
// Text deltas are emitted as they arrive; the terminal event is left to the
// caller.
func processStream(ctx context.Context, body io.Reader, emit func(model.StreamEvent)) error {
	reader := NewSSEReader(body)

	for {
		if ctx.Err() != nil {
			return classifyTransport(ctx, "read stream", ctx.Err())
		}

		eventType, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				// Some servers close without [DONE].
				return nil
			}
			return classifyTransport(ctx, "read stream", err)
		}

		if bytes.Equal(bytes.TrimSpace(data), doneMarker) {
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			if eventType == "error" {
				return &model.APIError{Code: "stream_error", Message: string(data)}
			}
			// Skip malformed chunks
			continue
		}
		if apiErr := chunk.AsError(); apiErr != nil {
			return apiErr
		}

		if content := chunk.GetContent(); content != "" {
			emit(model.TextEvent(content))
		}
	}
}
