// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

var inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Theme != "light" {
		opts.Theme = "dark"
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(conv.Title))
	sb.WriteString("    <meta name=\"generator\" content=\"rigchat\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339))
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", e.options.Theme)
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")
	sb.WriteString("    </div>\n</body>\n</html>\n")

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

func (e *HTMLExporter) renderHeader(conv *model.Conversation) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(conv.Title))
	sb.WriteString("            <div class=\"metadata\">\n")
	if e.options.Model != "" {
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Model:</strong> %s</span>\n", html.EscapeString(e.options.Model))
	}
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt))
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg model.Message) string {
	var sb strings.Builder

	role := html.EscapeString(string(msg.Role))
	fmt.Fprintf(&sb, "            <div class=\"message %s-message\">\n", role)
	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role-label\">%s</span>\n", html.EscapeString(msg.Role.DisplayName()))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString("                </div>\n")
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(e.formatContent(msg.Content))
	sb.WriteString("                </div>\n")
	sb.WriteString("            </div>\n")

	return sb.String()
}

// formatContent renders prose as paragraphs and fenced blocks through chroma.
func (e *HTMLExporter) formatContent(content string) string {
	var sb strings.Builder

	for _, seg := range SplitFences(content) {
		if seg.Code {
			sb.WriteString("<div class=\"code-block\">")
			if seg.Lang != "" {
				// Escape the language label, it comes straight from model output
				fmt.Fprintf(&sb, "<div class=\"code-lang\">%s</div>", html.EscapeString(seg.Lang))
			}
			highlighted, err := HighlightHTML(seg.Text, seg.Lang, e.options.Theme)
			if err != nil {
				highlighted = "<pre><code>" + html.EscapeString(seg.Text) + "</code></pre>"
			}
			sb.WriteString(highlighted)
			sb.WriteString("</div>\n")
			continue
		}

		for _, para := range strings.Split(strings.TrimSpace(seg.Text), "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			escaped := html.EscapeString(para)
			escaped = inlineCodeRegex.ReplaceAllString(escaped, "<code class=\"inline-code\">$1</code>")
			escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
			sb.WriteString("<p>" + escaped + "</p>\n")
		}
	}

	return sb.String()
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const css = `    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            line-height: 1.6;
            padding: 20px;
        }
        .dark-theme { background: #1e1e2e; color: #cdd6f4; --muted: #a6adc8; --panel: #313244; --border: #45475a; --accent: #89b4fa; }
        .light-theme { background: #eff1f5; color: #4c4f69; --muted: #6c6f85; --panel: #ffffff; --border: #ccd0da; --accent: #1e66f5; }
        .container { max-width: 900px; margin: 0 auto; }
        .header { padding: 24px 0; border-bottom: 1px solid var(--border); }
        .header h1 { font-size: 24px; margin-bottom: 8px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--muted); }
        .conversation { padding: 24px 0; display: flex; flex-direction: column; gap: 16px; }
        .message { background: var(--panel); border: 1px solid var(--border); border-radius: 8px; padding: 16px 20px; }
        .user-message { border-left: 4px solid var(--accent); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 8px; font-size: 14px; }
        .role-label { font-weight: 600; }
        .timestamp { color: var(--muted); }
        .message-content p { margin-bottom: 12px; }
        .code-block { margin: 12px 0; border-radius: 6px; overflow: hidden; }
        .code-block pre { padding: 12px; overflow-x: auto; font-size: 13px; }
        .code-lang { font-size: 12px; padding: 4px 12px; color: var(--muted); border-bottom: 1px solid var(--border); }
        .inline-code { font-family: monospace; padding: 1px 4px; border-radius: 3px; background: var(--border); }
        @media print { .message { page-break-inside: avoid; } }
    </style>
`
