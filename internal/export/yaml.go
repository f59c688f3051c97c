// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter exports sessions to YAML.
type YAMLExporter struct {
	options *Options
}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter(opts *Options) *YAMLExporter {
	return &YAMLExporter{options: normalize(opts)}
}

// Export converts a session to YAML.
func (e *YAMLExporter) Export(s model.Session, msgs []model.Message) ([]byte, error) {
	if err := validate(s, msgs); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(e.options, s, msgs)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
