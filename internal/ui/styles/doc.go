// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the colour palette and the lipgloss styles of the
// terminal interface.
//
// Colours are lipgloss.AdaptiveColor values so the same theme works on
// light and dark terminals. NewTheme detects the background and colour
// profile once with termenv; the result also picks the glamour style used
// for assistant replies and the chroma style used for code blocks.
package styles
