// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

func testTheme() *styles.Theme {
	return styles.NewThemeFor(termenv.Ascii, true)
}

// =============================================================================
// STATUS BAR TESTS
// =============================================================================

func TestStatusBar_States(t *testing.T) {
	bar := NewStatusBar(testTheme())
	bar.ModelName = "deepseek"
	bar.Width = 120

	assert.Contains(t, bar.View(), "checking")

	bar.SetOnline(true, "http://127.0.0.1:11434")
	view := bar.View()
	assert.Contains(t, view, styles.Indicators.Online)
	assert.Contains(t, view, "127.0.0.1:11434")
	assert.Contains(t, view, "deepseek")
	assert.Contains(t, view, "^N")

	bar.SetOnline(false, "")
	bar.Status = StatusGenerating
	bar.Thinking = true
	view = bar.View()
	assert.Contains(t, view, "offline")
	assert.Contains(t, view, "Generating...")
	assert.Contains(t, view, "thinking")
}

func TestStatusBar_FitsWidth(t *testing.T) {
	bar := NewStatusBar(testTheme())
	bar.ModelName = strings.Repeat("m", 200)
	bar.Detail = "pulling manifest 40%"
	for _, w := range []int{30, 60, 100, 160} {
		bar.Width = w
		view := bar.View()
		assert.LessOrEqual(t, lipgloss.Width(view), w, "width %d", w)
		assert.Equal(t, 1, lipgloss.Height(view), "width %d", w)
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Ready", StatusReady.String())
	assert.Equal(t, "Pulling model...", StatusPulling.String())
	assert.Equal(t, "Unknown", Status(99).String())
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessageView_UserAndAssistant(t *testing.T) {
	theme := testTheme()

	user := NewMessageView(model.NewUserMessage("hello there"), theme, nil)
	user.Width = 60
	assert.Contains(t, user.View(), "You")
	assert.Contains(t, user.View(), "hello there")

	md := NewMarkdown(theme, 60, false)
	reply := NewMessageView(model.NewAssistantMessage("plain reply"), theme, md)
	reply.Width = 60
	assert.Contains(t, reply.View(), "Assistant")
	assert.Contains(t, reply.View(), "plain reply")
}

func TestMessageView_StreamingCursor(t *testing.T) {
	v := NewMessageView(model.Message{Role: model.RoleAssistant, Content: "partial"}, testTheme(), nil)
	v.Streaming = true
	view := v.View()
	assert.Contains(t, view, "partial")
	assert.Contains(t, view, "▌")
}

func TestMarkdown_PlainFallbackKeepsCode(t *testing.T) {
	md := NewMarkdown(testTheme(), 40, false)
	out := md.Render("Intro text.\n\n```go\nfunc main() {}\n```\n")

	assert.Contains(t, out, "Intro text.")
	assert.Contains(t, out, "main")
	assert.NotContains(t, out, "```")
	assert.Equal(t, 40, md.Width())
}

func TestMarkdown_Glamour(t *testing.T) {
	md := NewMarkdown(styles.NewThemeFor(termenv.TrueColor, true), 60, true)
	out := md.Render("# Title\n\nSome **bold** words.")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
	assert.NotContains(t, out, "**")
}

func TestMarkdown_MinimumWidth(t *testing.T) {
	assert.Equal(t, 20, NewMarkdown(testTheme(), 5, false).Width())
}

func TestRenderError(t *testing.T) {
	out := RenderError(testTheme(), "Ollama service is not running.", "1. Start Ollama\n2. Retry", 60)
	assert.Contains(t, out, "Ollama service is not running.")
	assert.Contains(t, out, "Start Ollama")

	bare := RenderError(testTheme(), "boom", "  ", 60)
	assert.Contains(t, bare, "boom")
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	assert.Equal(t, now.Format("15:04"), formatTime(now))
	old := time.Date(2020, 3, 4, 5, 6, 0, 0, time.Local)
	assert.Equal(t, "Mar 4 05:06", formatTime(old))
}

// =============================================================================
// PICKER TESTS
// =============================================================================

func TestConversationItem(t *testing.T) {
	conv := model.NewConversation()
	conv.Title = "line one\nline two " + strings.Repeat("x", 80)
	conv.AppendUser("q")

	item := ConversationItem{Conversation: *conv}
	assert.NotContains(t, item.Title(), "\n")
	assert.LessOrEqual(t, lipgloss.Width(item.Title()), titleWidth)
	assert.Contains(t, item.Description(), "1 message")
	assert.Equal(t, conv.Title, item.FilterValue())
}

func TestModelItems_MarksSelection(t *testing.T) {
	items := ModelItems([]ollama.ModelInfo{{Name: "deepseek", Size: 4 << 30}, {Name: "llama3"}}, "deepseek")
	require.Len(t, items, 2)

	first := items[0].(ModelItem)
	assert.True(t, first.Selected)
	assert.Contains(t, first.Title(), styles.Indicators.Online)
	assert.Equal(t, "4.0 GB", first.Description())

	second := items[1].(ModelItem)
	assert.False(t, second.Selected)
	assert.Empty(t, second.Description())
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "2.0 MB", humanSize(2<<20))
}

func TestNewPicker(t *testing.T) {
	l := NewPicker(testTheme(), "Conversations", 40, 10)
	l.SetItems(ConversationItems([]model.Conversation{*model.NewConversation()}))
	assert.Equal(t, "Conversations", l.Title)
	assert.Len(t, l.Items(), 1)
}
