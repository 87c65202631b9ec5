// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the generation state shown in the status bar.
type Status int

const (
	StatusReady Status = iota
	StatusGenerating
	StatusPulling
	StatusError
)

// String returns the display text for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusGenerating:
		return "Generating..."
	case StatusPulling:
		return "Pulling model..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar is the bottom line of the chat screen.
type StatusBar struct {
	ModelName string
	// Online is nil until the first reachability probe finishes.
	Online   *bool
	BaseURL  string
	Status   Status
	Thinking bool
	// Detail replaces the shortcut hints when set (pull progress, notices).
	Detail string
	Width  int

	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// SetOnline records the result of a reachability probe.
func (s *StatusBar) SetOnline(online bool, baseURL string) {
	s.Online = &online
	s.BaseURL = baseURL
}

// View renders the bar at s.Width.
func (s *StatusBar) View() string {
	sep := s.theme.StatusDesc.Render(" | ")

	left := []string{s.renderServer(), s.theme.HeaderModel.Render(s.ModelName)}
	if s.Thinking {
		left = append(left, s.theme.StatusBusy.Render("thinking"))
	}
	if s.Status != StatusReady {
		style := s.theme.StatusBusy
		if s.Status == StatusError {
			style = s.theme.StatusOffline
		}
		left = append(left, style.Render(s.Status.String()))
	}
	leftText := strings.Join(left, sep)

	right := s.Detail
	if right == "" && s.Width >= 100 {
		right = s.renderShortcuts()
	}

	inner := max(s.Width-2, 0)
	gap := inner - lipgloss.Width(leftText) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = max(inner-lipgloss.Width(leftText), 0)
	}
	line := leftText + strings.Repeat(" ", gap) + right

	return s.theme.StatusBar.Width(s.Width).MaxWidth(s.Width).MaxHeight(1).Render(line)
}

func (s *StatusBar) renderServer() string {
	switch {
	case s.Online == nil:
		return s.theme.StatusDesc.Render(styles.Indicators.Offline + " checking")
	case *s.Online:
		text := styles.Indicators.Online + " ollama"
		if s.BaseURL != "" && s.Width >= 80 {
			text += " " + strings.TrimPrefix(s.BaseURL, "http://")
		}
		return s.theme.StatusOnline.Render(text)
	default:
		return s.theme.StatusOffline.Render(styles.Indicators.Error + " ollama offline")
	}
}

func (s *StatusBar) renderShortcuts() string {
	pairs := [][2]string{
		{"^N", "new"},
		{"^O", "chats"},
		{"^K", "models"},
		{"^T", "think"},
		{"F1", "help"},
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, s.theme.StatusKey.Render(p[0])+" "+s.theme.StatusDesc.Render(p[1]))
	}
	return strings.Join(out, "  ")
}
