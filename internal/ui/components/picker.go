// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// titleWidth bounds titles in the conversation picker.
const titleWidth = 48

// =============================================================================
// ITEMS
// =============================================================================

// ConversationItem is a conversation in the picker.
type ConversationItem struct {
	Conversation model.Conversation
}

func (i ConversationItem) Title() string {
	return util.TruncateWidth(util.SingleLine(i.Conversation.Title), titleWidth)
}

func (i ConversationItem) Description() string {
	n := len(i.Conversation.Messages)
	noun := "messages"
	if n == 1 {
		noun = "message"
	}
	return fmt.Sprintf("%s · %d %s", i.Conversation.CreatedAt.Local().Format("2006-01-02 15:04"), n, noun)
}

func (i ConversationItem) FilterValue() string {
	return i.Conversation.Title
}

// ModelItem is an installed model in the picker.
type ModelItem struct {
	Info     ollama.ModelInfo
	Selected bool
}

func (i ModelItem) Title() string {
	if i.Selected {
		return i.Info.Name + " " + styles.Indicators.Online
	}
	return i.Info.Name
}

func (i ModelItem) Description() string {
	if i.Info.Size <= 0 {
		return ""
	}
	return humanSize(i.Info.Size)
}

func (i ModelItem) FilterValue() string {
	return i.Info.Name
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// =============================================================================
// PICKERS
// =============================================================================

// ConversationItems converts conversations to list items, keeping order.
func ConversationItems(convs []model.Conversation) []list.Item {
	items := make([]list.Item, len(convs))
	for i, c := range convs {
		items[i] = ConversationItem{Conversation: c}
	}
	return items
}

// ModelItems converts a model listing to list items, marking selected.
func ModelItems(models []ollama.ModelInfo, selected string) []list.Item {
	items := make([]list.Item, len(models))
	for i, m := range models {
		items[i] = ModelItem{Info: m, Selected: m.Name == selected}
	}
	return items
}

// NewPicker builds a themed list.
func NewPicker(theme *styles.Theme, title string, width, height int) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(styles.Purple).
		BorderForeground(styles.Purple)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(styles.TextSecondary).
		BorderForeground(styles.Purple)

	l := list.New(nil, delegate, width, height)
	l.Title = title
	l.Styles.Title = theme.ListTitle
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName("item", "items")
	l.Styles.NoItems = lipgloss.NewStyle().Foreground(styles.TextMuted).Padding(0, 2)
	return l
}
