// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// Generator names the producing program in exported documents.
const Generator = "rigrun-chat"

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a session and its messages into one document.
type Exporter interface {
	// Export renders the session. Messages are expected in ascending order.
	Export(s model.Session, msgs []model.Message) ([]byte, error)

	// FileExtension returns the file extension, including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// IncludeMetadata adds the session header (dates, counts).
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string

	// Now stamps the export time. Default: time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
		Now:               time.Now,
	}
}

func normalize(opts *Options) *Options {
	if opts == nil {
		return DefaultOptions()
	}
	o := *opts
	if o.Theme != "light" {
		o.Theme = "dark"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &o
}

// =============================================================================
// FORMAT SELECTION
// =============================================================================

// Formats lists the canonical format names.
func Formats() []string {
	return []string{"markdown", "html", "json", "yaml"}
}

// ForFormat returns the exporter for a format name or common alias.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "yaml", "yml":
		return NewYAMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// validate rejects sessions that cannot be rendered.
func validate(s model.Session, msgs []model.Message) error {
	if s.ID == "" {
		return errors.New("session has no id")
	}
	if s.CreatedAt.IsZero() {
		return errors.New("session has invalid creation timestamp")
	}
	for _, m := range msgs {
		if m.SessionID != s.ID {
			return fmt.Errorf("message %s belongs to session %s, not %s", m.ID, m.SessionID, s.ID)
		}
	}
	return nil
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// WriteFile exports the session into dir and returns the written path.
// The file name is derived from the title and the export time.
func WriteFile(dir string, s model.Session, msgs []model.Message, exp Exporter, now time.Time) (string, error) {
	content, err := exp.Export(s, msgs)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(s.Title),
		now.Format("20060102_150405"),
		exp.FileExtension(),
	)

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "session"
	}
	return string(result)
}

// roleLabel returns the display label for a role.
func roleLabel(r model.Role) string {
	switch r {
	case "":
		return "Unknown"
	case model.RoleUser:
		return "[User]"
	case model.RoleAssistant:
		return "[Assistant]"
	default:
		runes := []rune(string(r))
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

// countRoles returns the number of user and assistant messages.
func countRoles(msgs []model.Message) (user, assistant int) {
	for _, m := range msgs {
		switch m.Role {
		case model.RoleUser:
			user++
		case model.RoleAssistant:
			assistant++
		}
	}
	return user, assistant
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.UTC().Format("15:04:05")
}
