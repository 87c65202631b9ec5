// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/ui/components"
)

const busyNotice = "A reply is still being generated. Press esc to stop it."

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamTickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		if chunk, ok := m.buffer.Flush(); ok {
			m.streaming += chunk
			m.refresh()
		}
		return m, streamTickCmd()

	case GenerationDoneMsg:
		return m.handleDone(msg), nil

	case PullProgressMsg:
		m.status.Status = components.StatusPulling
		m.status.Detail = pullDetail(msg)
		return m, nil

	case ConversationsMsg:
		if msg.Err != nil {
			m.notice = "Could not load conversations: " + msg.Err.Error()
			return m, nil
		}
		cmd := m.chats.SetItems(components.ConversationItems(msg.Conversations))
		return m, cmd

	case ModelsMsg:
		if !msg.Result.Success {
			m.notice = msg.Result.Error
		}
		cmd := m.models.SetItems(components.ModelItems(msg.Result.Models, m.svc.GetModelName()))
		return m, cmd

	case ServerStatusMsg:
		m.status.SetOnline(msg.Status.Available, msg.Status.BaseURL)
		return m, nil

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.forward(msg)
}

// forward passes msg to the component that owns the main area.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ViewChats:
		m.chats, cmd = m.chats.Update(msg)
	case ViewModels:
		m.models, cmd = m.models.Update(msg)
	default:
		var vpCmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmd = tea.Batch(cmd, vpCmd)
	}
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancels.stop()
		return m, tea.Quit
	}
	if m.showHelp {
		// Any key closes the help screen.
		m.showHelp = false
		return m, nil
	}

	switch m.view {
	case ViewChats:
		return m.handleChatsKey(msg)
	case ViewModels:
		return m.handleModelsKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Newline):
		m.input.InsertString("\n")
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateStreaming {
			if m.cancels.stop() {
				m.stopped = true
				m.notice = "Stopping..."
			}
			return m, nil
		}
		m.failure = nil
		m.notice = ""
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		if m.state == StateStreaming {
			m.notice = busyNotice
			return m, nil
		}
		m.conv = nil
		m.failure = nil
		m.notice = ""
		m.input.Reset()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Chats):
		m.view = ViewChats
		return m, loadConversationsCmd(m.svc)

	case key.Matches(msg, m.keys.Models):
		m.view = ViewModels
		return m, loadModelsCmd(m.ctx, m.svc)

	case key.Matches(msg, m.keys.Thinking):
		on := !m.svc.Thinking()
		m.svc.SetThinking(on)
		m.status.Thinking = on
		if on {
			m.notice = "Thinking mode on: replies explain their reasoning step by step."
		} else {
			m.notice = "Thinking mode off."
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleChatsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.chats.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.chats, cmd = m.chats.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.chats.FilterState() == list.FilterApplied {
			m.chats.ResetFilter()
			return m, nil
		}
		m.view = ViewChat
		return m, nil

	case key.Matches(msg, m.keys.Select):
		item, ok := m.chats.SelectedItem().(components.ConversationItem)
		if !ok {
			return m, nil
		}
		if m.state == StateStreaming {
			m.notice = busyNotice
			return m, nil
		}
		conv, err := m.svc.GetChat(item.Conversation.ID)
		if err != nil {
			m.notice = "Could not open conversation: " + err.Error()
			return m, nil
		}
		m.conv = conv
		m.failure = nil
		m.notice = ""
		m.view = ViewChat
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		item, ok := m.chats.SelectedItem().(components.ConversationItem)
		if !ok {
			return m, nil
		}
		if m.state == StateStreaming && m.conv != nil && m.conv.ID == item.Conversation.ID {
			m.notice = busyNotice
			return m, nil
		}
		if err := m.svc.DeleteChat(item.Conversation.ID); err != nil {
			m.notice = "Could not delete conversation: " + err.Error()
			return m, nil
		}
		if m.conv != nil && m.conv.ID == item.Conversation.ID {
			m.conv = nil
			m.failure = nil
			m.refresh()
		}
		m.notice = fmt.Sprintf("Deleted %q.", item.Conversation.Title)
		return m, loadConversationsCmd(m.svc)
	}

	var cmd tea.Cmd
	m.chats, cmd = m.chats.Update(msg)
	return m, cmd
}

func (m Model) handleModelsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.models.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.models, cmd = m.models.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.view = ViewChat
		return m, nil

	case key.Matches(msg, m.keys.Select):
		item, ok := m.models.SelectedItem().(components.ModelItem)
		if !ok {
			return m, nil
		}
		if m.state == StateStreaming {
			m.notice = busyNotice
			return m, nil
		}
		if err := m.svc.SetModelName(item.Info.Name); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.status.ModelName = item.Info.Name
		m.notice = "Using " + item.Info.Name + "."
		m.view = ViewChat
		return m, nil
	}

	var cmd tea.Cmd
	m.models, cmd = m.models.Update(msg)
	return m, cmd
}

// =============================================================================
// GENERATION
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		m.notice = busyNotice
		return m, nil
	}
	prompt := strings.TrimSpace(m.input.Value())
	if prompt == "" {
		return m, nil
	}

	if m.conv == nil {
		conv, err := m.svc.NewChat()
		if err != nil {
			m.notice = "Could not start a conversation: " + err.Error()
			return m, nil
		}
		m.conv = conv
	}

	// Shown immediately; the stored copy replaces it when the reply is done.
	m.conv.AppendUser(prompt)
	m.input.Reset()
	m.failure = nil
	m.notice = ""
	m.stopped = false
	m.streaming = ""
	m.buffer.Reset()
	m.state = StateStreaming
	m.status.Status = components.StatusGenerating
	m.genID++

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancels.set(cancel)
	m.refresh()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		generateCmd(ctx, m.svc, m.genID, m.conv.ID, prompt, m.buffer),
		streamTickCmd(),
		m.spinner.Tick,
	)
}

func (m Model) handleDone(msg GenerationDoneMsg) Model {
	if msg.ID != m.genID {
		return m
	}
	m.cancels.stop()
	m.buffer.Reset()
	m.state = StateReady
	m.streaming = ""
	m.status.Status = components.StatusReady
	m.status.Detail = ""

	switch {
	case msg.Err != nil:
		m.status.Status = components.StatusError
		m.notice = msg.Err.Error()
	case !msg.Outcome.Success && m.stopped:
		m.notice = "Generation stopped."
	case !msg.Outcome.Success:
		out := msg.Outcome
		m.failure = &out
		m.status.Status = components.StatusError
		m.notice = ""
	default:
		m.notice = ""
	}
	m.stopped = false

	if m.conv != nil && m.conv.ID == msg.ConversationID {
		if stored, err := m.svc.GetChat(msg.ConversationID); err == nil {
			m.conv = stored
		}
	}
	m.refresh()
	m.viewport.GotoBottom()
	return m
}

func pullDetail(msg PullProgressMsg) string {
	p := msg.Progress
	if pct := p.Percent(); pct >= 0 {
		return fmt.Sprintf("pull: %s %.0f%%", p.Status, pct)
	}
	return "pull: " + p.Status
}
