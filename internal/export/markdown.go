// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	return &MarkdownExporter{options: normalize(opts)}
}

// Export converts a session to Markdown.
func (e *MarkdownExporter) Export(s model.Session, msgs []model.Message) ([]byte, error) {
	if err := validate(s, msgs); err != nil {
		return nil, err
	}

	var sb strings.Builder
	user, assistant := countRoles(msgs)

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(s.Title))
		fmt.Fprintf(&sb, "session: %s\n", s.ID)
		fmt.Fprintf(&sb, "date: %s\n", s.CreatedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&sb, "updated: %s\n", s.UpdatedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&sb, "messages: %d\n", len(msgs))
		if s.IsPinned {
			sb.WriteString("pinned: true\n")
		}
		fmt.Fprintf(&sb, "exported: %s\n", e.options.Now().UTC().Format(time.RFC3339))
		fmt.Fprintf(&sb, "generator: %s\n", Generator)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(s.Title))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		fmt.Fprintf(&sb, "- **Created**: %s\n", formatTimestamp(s.CreatedAt))
		fmt.Fprintf(&sb, "- **Last Updated**: %s\n", formatTimestamp(s.UpdatedAt))
		fmt.Fprintf(&sb, "- **Messages**: %d (%d user, %d assistant)\n", len(msgs), user, assistant)
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	if len(msgs) == 0 {
		sb.WriteString("*No messages.*\n\n")
	}

	for i, msg := range msgs {
		label := roleLabel(msg.Role)
		if msg.IsPinned {
			label += " [Pinned]"
		}
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		// Content is already markdown.
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from %s on %s*\n", Generator,
		e.options.Now().UTC().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	return strings.NewReplacer(
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
		"\n", " ",
	).Replace(s)
}

// escapeYAML quotes a frontmatter value when it contains special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.NewReplacer(
			"\\", "\\\\",
			"\"", "\\\"",
			"\n", "\\n",
			"\r", "\\r",
		).Replace(s)
		return `"` + s + `"`
	}
	return s
}
