// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestNewThemeFor_StyleNames(t *testing.T) {
	tests := []struct {
		name    string
		profile termenv.Profile
		dark    bool
		glamour string
		code    string
	}{
		{"dark truecolor", termenv.TrueColor, true, "dark", "monokai"},
		{"light 256", termenv.ANSI256, false, "light", "github"},
		{"no colour", termenv.Ascii, true, "notty", "monokai"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme := NewThemeFor(tt.profile, tt.dark)
			assert.Equal(t, tt.dark, theme.IsDark)
			assert.Equal(t, tt.glamour, theme.GlamourStyle())
			assert.Equal(t, tt.code, theme.CodeStyle())
		})
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewThemeFor(termenv.Ascii, true)

	for name, style := range map[string]lipgloss.Style{
		"Header":        theme.Header,
		"UserBody":      theme.UserBody,
		"AssistantBody": theme.AssistantBody,
		"ErrorBox":      theme.ErrorBox,
		"InputBorder":   theme.InputBorder,
		"StatusBar":     theme.StatusBar,
	} {
		assert.Contains(t, style.Render("test"), "test", name)
	}
}

func TestBorderedStylesAddWidth(t *testing.T) {
	theme := NewThemeFor(termenv.Ascii, true)
	rendered := theme.UserBody.Render("hi")
	assert.Greater(t, lipgloss.Width(rendered), len("hi"))
	assert.True(t, strings.Contains(rendered, "hi"))
}

func TestIndicatorsAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range []string{Indicators.Online, Indicators.Offline, Indicators.Busy, Indicators.Error} {
		assert.False(t, seen[s], s)
		seen[s] = true
	}
}
