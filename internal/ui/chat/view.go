// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/components"
	"github.com/jeranaias/rigchat/internal/util"
)

// chromeHeight is the number of rows outside the main area: header and its
// border, notice line, bordered input box, status bar.
const chromeHeight = 2 + 1 + (inputHeight + 2) + 1

// resize lays the components out for a w x h terminal.
func (m *Model) resize(w, h int) {
	widthChanged := w != m.width
	m.width, m.height = w, h

	mainHeight := max(h-chromeHeight, 3)
	m.viewport.Width = w
	m.viewport.Height = mainHeight
	m.input.SetWidth(max(w-4, 10))
	m.chats.SetSize(w, mainHeight)
	m.models.SetSize(w, mainHeight)
	m.status.Width = w
	m.help.Width = w

	if widthChanged || m.md == nil {
		m.md = components.NewMarkdown(m.theme, max(w-4, 20), m.opts.RenderMarkdown)
	}
	m.ready = true
	m.refresh()
}

// refresh rebuilds the viewport content.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if atBottom || m.state == StateStreaming {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderConversation() string {
	if m.conv == nil || len(m.conv.Messages) == 0 {
		if m.failure == nil && m.state != StateStreaming {
			return m.renderWelcome()
		}
	}

	var parts []string
	if m.conv != nil && len(m.conv.Messages) > 0 {
		parts = append(parts, m.renderMessages())
	}
	if m.state == StateStreaming {
		view := components.NewMessageView(model.Message{Role: model.RoleAssistant, Content: m.streaming}, m.theme, nil)
		view.Width = m.width
		view.Streaming = true
		parts = append(parts, view.View())
	}
	if m.failure != nil {
		parts = append(parts, components.RenderError(m.theme, m.failure.Error, m.failure.Remediation, m.width))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderMessages() string {
	if m.cache.valid(m.conv.ID, m.width, len(m.conv.Messages)) {
		return m.cache.content
	}
	blocks := make([]string, 0, len(m.conv.Messages))
	for _, msg := range m.conv.Messages {
		view := components.NewMessageView(msg, m.theme, m.md)
		view.Width = m.width
		blocks = append(blocks, view.View())
	}
	m.cache = renderCache{
		convID:   m.conv.ID,
		width:    m.width,
		messages: len(m.conv.Messages),
		content:  strings.Join(blocks, "\n\n"),
	}
	return m.cache.content
}

func (m *Model) renderWelcome() string {
	lines := []string{
		m.theme.HeaderTitle.Render("rigchat"),
		"",
		m.theme.Muted.Render("Chat with a local Ollama model. Conversations are saved automatically."),
		m.theme.Muted.Render("ctrl+o opens saved conversations, ctrl+k picks a model, f1 shows all keys."),
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var main string
	switch {
	case m.showHelp:
		main = m.theme.Help.Render(m.help.View(m.keys))
	case m.view == ViewChats:
		main = m.chats.View()
	case m.view == ViewModels:
		main = m.models.View()
	default:
		main = m.viewport.View()
	}
	main = lipgloss.NewStyle().Height(m.viewport.Height).MaxHeight(m.viewport.Height).Render(main)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		main,
		m.renderNotice(),
		m.renderInput(),
		m.status.View(),
	)
}

func (m Model) renderHeader() string {
	title := model.DefaultTitle
	if m.conv != nil {
		title = m.conv.Title
	}
	text := m.theme.HeaderTitle.Render("rigchat") + "  " +
		util.TruncateWidth(util.SingleLine(title), max(m.width-14, 10))
	return m.theme.Header.Width(m.width).MaxHeight(2).Render(text)
}

func (m Model) renderNotice() string {
	text := m.notice
	if m.state == StateStreaming && text == "" {
		text = m.spinner.View() + " " + m.status.Status.String()
	}
	return m.theme.Muted.MaxWidth(m.width).Render(util.SingleLine(text))
}

func (m Model) renderInput() string {
	style := m.theme.InputBorder
	if m.state == StateStreaming || m.view != ViewChat {
		style = m.theme.InputDisabled
	}
	return style.Width(max(m.width-2, 10)).Render(m.input.View())
}
