// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

var (
	codeBlockRegex  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports sessions to a standalone HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	return &HTMLExporter{options: normalize(opts)}
}

// Export converts a session to HTML.
func (e *HTMLExporter) Export(s model.Session, msgs []model.Message) ([]byte, error) {
	if err := validate(s, msgs); err != nil {
		return nil, err
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(s.Title))
	fmt.Fprintf(&sb, "    <meta name=\"generator\" content=\"%s\">\n", Generator)
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", s.CreatedAt.UTC().Format(time.RFC3339))
	sb.WriteString(stylesheet)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", e.options.Theme)
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(s, msgs))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range msgs {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>%s</strong> on %s</p>\n", Generator,
		e.options.Now().UTC().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(s model.Session, msgs []model.Message) string {
	var sb strings.Builder
	user, assistant := countRoles(msgs)

	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(s.Title))
	sb.WriteString("            <div class=\"metadata\">\n")
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(s.CreatedAt))
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Updated:</strong> %s</span>\n", formatTimestamp(s.UpdatedAt))
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d (%d user, %d assistant)</span>\n",
		len(msgs), user, assistant)
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg model.Message) string {
	var sb strings.Builder

	classes := "message " + html.EscapeString(strings.ToLower(string(msg.Role))) + "-message"
	if msg.IsPinned {
		classes += " pinned"
	}
	fmt.Fprintf(&sb, "            <div class=\"%s\" id=\"msg-%s\">\n", classes, html.EscapeString(msg.ID))

	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg.Role)))
	if e.options.IncludeTimestamps {
		fmt.Fprintf(&sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.CreatedAt))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(formatContent(msg.Content))
	sb.WriteString("\n                </div>\n")
	sb.WriteString("            </div>\n")
	return sb.String()
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

// formatContent escapes content and turns fenced and inline code into
// markup. Remaining text is split into paragraphs on blank lines.
func formatContent(content string) string {
	content = strings.ReplaceAll(content, "\x00", "")
	content = html.EscapeString(strings.TrimSpace(content))

	var blocks []string
	content = codeBlockRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRegex.FindStringSubmatch(match)
		lang, code := parts[1], parts[2]

		label := ""
		if lang != "" {
			label = fmt.Sprintf("<div class=\"code-lang\">%s</div>", lang)
		}
		blocks = append(blocks, fmt.Sprintf("<div class=\"code-block\">%s<pre><code class=\"language-%s\">%s</code></pre></div>",
			label, lang, strings.TrimRight(code, "\n")))
		return fmt.Sprintf("\x00%d\x00", len(blocks)-1)
	})

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "\x00") && strings.HasSuffix(para, "\x00") {
			var idx int
			if _, err := fmt.Sscanf(strings.Trim(para, "\x00"), "%d", &idx); err == nil && idx < len(blocks) {
				out = append(out, blocks[idx])
				continue
			}
		}
		para = inlineCodeRegex.ReplaceAllString(para, "<code class=\"inline-code\">$1</code>")
		para = strings.ReplaceAll(para, "\n", "<br>\n")
		out = append(out, "<p>"+para+"</p>")
	}

	result := strings.Join(out, "\n")
	// Code blocks that shared a paragraph with text.
	for i, b := range blocks {
		result = strings.ReplaceAll(result, fmt.Sprintf("\x00%d\x00", i), b)
	}
	return result
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const stylesheet = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        .dark-theme {
            --bg: #1a1b26; --panel: #24283b; --text: #c0caf5; --muted: #565f89;
            --border: #414868; --user: #1f2335; --accent: #7aa2f7; --code: #16161e;
        }
        .light-theme {
            --bg: #ffffff; --panel: #f7f8fa; --text: #24292e; --muted: #6a737d;
            --border: #e1e4e8; --user: #eef2f7; --accent: #0366d6; --code: #f6f8fa;
        }
        body {
            font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
            line-height: 1.6; color: var(--text); background: var(--bg); padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; background: var(--panel); border-radius: 12px; }
        .header { padding: 24px 32px; border-bottom: 2px solid var(--border); }
        .header h1 { font-size: 26px; margin-bottom: 12px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--muted); }
        .conversation { padding: 24px 32px; }
        .message { padding: 16px 20px; margin-bottom: 16px; border-radius: 8px; border: 1px solid var(--border); }
        .user-message { background: var(--user); }
        .pinned { border-left: 4px solid var(--accent); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 8px; }
        .role-label { font-weight: 600; color: var(--accent); }
        .timestamp { font-size: 12px; color: var(--muted); }
        .message-content p { margin-bottom: 8px; }
        .code-block { margin: 8px 0; background: var(--code); border-radius: 6px; overflow-x: auto; }
        .code-lang { font-size: 12px; color: var(--muted); padding: 4px 12px; border-bottom: 1px solid var(--border); }
        pre { padding: 12px; font-family: "SF Mono", Monaco, monospace; font-size: 14px; }
        .inline-code { background: var(--code); padding: 1px 4px; border-radius: 3px; font-family: monospace; }
        .footer { padding: 16px 32px; font-size: 13px; color: var(--muted); border-top: 1px solid var(--border); }
        @media print { body { padding: 0; } .message { page-break-inside: avoid; } }
    </style>
`
