// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// Document is the structured form written by the JSON and YAML exporters.
// It always carries the complete data model regardless of options.
type Document struct {
	Generator  string          `json:"generator" yaml:"generator"`
	ExportedAt time.Time       `json:"exported_at" yaml:"exported_at"`
	Session    model.Session   `json:"session" yaml:"session"`
	Messages   []model.Message `json:"messages" yaml:"messages"`
}

func newDocument(opts *Options, s model.Session, msgs []model.Message) Document {
	if msgs == nil {
		msgs = []model.Message{}
	}
	return Document{
		Generator:  Generator,
		ExportedAt: opts.Now().UTC(),
		Session:    s,
		Messages:   msgs,
	}
}

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports sessions to indented JSON.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	return &JSONExporter{options: normalize(opts)}
}

// Export converts a session to JSON.
func (e *JSONExporter) Export(s model.Session, msgs []model.Message) ([]byte, error) {
	if err := validate(s, msgs); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	// Code blocks in messages stay readable.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(newDocument(e.options, s, msgs)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
