// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// Markdown renders assistant replies for the terminal. Without glamour
// (disabled, or failed to build) fenced code is still highlighted with
// chroma and prose is wrapped.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdown builds a renderer wrapping at width. enabled=false skips
// glamour entirely.
func NewMarkdown(theme *styles.Theme, width int, enabled bool) *Markdown {
	md := &Markdown{width: max(width, 20)}
	if !enabled {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.GlamourStyle()),
		glamour.WithWordWrap(md.width),
	)
	if err == nil {
		md.renderer = r
	}
	return md
}

// Width returns the wrap width.
func (m *Markdown) Width() int {
	return m.width
}

// Render formats text.
func (m *Markdown) Render(text string) string {
	if m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return m.plain(text)
}

func (m *Markdown) plain(text string) string {
	var parts []string
	for _, seg := range export.SplitFences(text) {
		if seg.Code {
			parts = append(parts, export.HighlightTerminal(seg.Text, seg.Lang))
			continue
		}
		parts = append(parts, lipgloss.NewStyle().Width(m.width).Render(strings.Trim(seg.Text, "\n")))
	}
	return strings.Join(parts, "\n\n")
}

// =============================================================================
// MESSAGE BLOCK
// =============================================================================

// MessageView renders one chat message.
type MessageView struct {
	Message   model.Message
	Width     int
	Streaming bool

	theme *styles.Theme
	md    *Markdown
}

// NewMessageView creates a view of msg. md may be nil for plain rendering.
func NewMessageView(msg model.Message, theme *styles.Theme, md *Markdown) MessageView {
	return MessageView{Message: msg, Width: 80, theme: theme, md: md}
}

// View renders the label line followed by the body.
func (v MessageView) View() string {
	label := v.theme.AssistantLabel
	body := v.theme.AssistantBody
	if v.Message.Role == model.RoleUser {
		label = v.theme.UserLabel
		body = v.theme.UserBody
	}

	header := label.Render(v.Message.Role.DisplayName())
	if !v.Message.Timestamp.IsZero() {
		header += " " + v.theme.Timestamp.Render(formatTime(v.Message.Timestamp))
	}

	content := v.Message.Content
	switch {
	case v.Streaming:
		// Partial markdown renders badly; show raw text until done.
		content = lipgloss.NewStyle().MaxWidth(max(v.Width-2, 10)).Render(content + v.theme.Cursor.Render("▌"))
	case v.Message.Role == model.RoleAssistant && v.md != nil:
		content = v.md.Render(content)
	default:
		content = lipgloss.NewStyle().Width(max(v.Width-2, 10)).Render(content)
	}

	return header + "\n" + body.Render(content)
}

// formatTime shows the clock for today and the date otherwise.
func formatTime(t time.Time) string {
	local := t.Local()
	now := time.Now()
	if local.Year() == now.Year() && local.YearDay() == now.YearDay() {
		return local.Format("15:04")
	}
	return local.Format("Jan 2 15:04")
}

// =============================================================================
// ERROR BOX
// =============================================================================

// RenderError renders a failed generation: the error on top, the
// remediation steps below it.
func RenderError(theme *styles.Theme, errMsg, remediation string, width int) string {
	inner := max(width-4, 10)
	var b strings.Builder
	b.WriteString(theme.ErrorTitle.Render(styles.Indicators.Error + " " + errMsg))
	if remediation = strings.TrimSpace(remediation); remediation != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.Remediation.Width(inner).Render(remediation))
	}
	return theme.ErrorBox.Width(inner).Render(b.String())
}
