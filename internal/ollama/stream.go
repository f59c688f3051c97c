// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// maxLineSize bounds one NDJSON line.
const maxLineSize = 1024 * 1024

// StreamReader handles line-by-line JSON parsing of streaming responses.
type StreamReader struct {
	scanner *bufio.Scanner
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &StreamReader{scanner: scanner}
}

// Next returns the next decoded chunk, skipping blank and malformed lines.
// Returns io.EOF at the end of the stream.
func (s *StreamReader) Next() (*StreamChunk, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk StreamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Skip malformed lines
			continue
		}
		return &chunk, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
