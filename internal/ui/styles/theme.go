// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the interface.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderModel lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	UserBody       lipgloss.Style
	AssistantLabel lipgloss.Style
	AssistantBody  lipgloss.Style
	Timestamp      lipgloss.Style
	Cursor         lipgloss.Style

	// Errors
	ErrorBox    lipgloss.Style
	ErrorTitle  lipgloss.Style
	Remediation lipgloss.Style

	// Input
	InputBorder   lipgloss.Style
	InputDisabled lipgloss.Style

	// Status bar
	StatusBar     lipgloss.Style
	StatusOnline  lipgloss.Style
	StatusOffline lipgloss.Style
	StatusBusy    lipgloss.Style
	StatusKey     lipgloss.Style
	StatusDesc    lipgloss.Style

	// Lists
	ListTitle lipgloss.Style
	Muted     lipgloss.Style
	Spinner   lipgloss.Style
	Help      lipgloss.Style
}

// NewTheme detects the terminal and builds a theme for it.
func NewTheme() *Theme {
	return NewThemeFor(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewThemeFor builds a theme for a known profile and background.
func NewThemeFor(profile termenv.Profile, dark bool) *Theme {
	t := &Theme{IsDark: dark, ColorProfile: profile}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// CodeStyle names the chroma style used for code blocks.
func (t *Theme) CodeStyle() string {
	if t.IsDark {
		return "monokai"
	}
	return "github"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.HeaderModel = lipgloss.NewStyle().Foreground(Cyan)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(UserLabel)
	t.UserBody = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(UserBorder).
		PaddingLeft(1).
		Foreground(TextPrimary)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(AssistantLabel)
	t.AssistantBody = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBorder).
		PaddingLeft(1)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Cursor = lipgloss.NewStyle().Foreground(Purple).Blink(true)

	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Background(ErrorBg).
		Foreground(ErrorFg).
		Padding(0, 1)
	t.ErrorTitle = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.Remediation = lipgloss.NewStyle().Foreground(TextSecondary)

	t.InputBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan)
	t.InputDisabled = t.InputBorder.BorderForeground(Overlay)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusOnline = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.StatusOffline = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.StatusBusy = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.StatusKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.StatusDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.ListTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple).Padding(0, 1)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.Help = lipgloss.NewStyle().Foreground(TextSecondary).Padding(1, 2)
}
