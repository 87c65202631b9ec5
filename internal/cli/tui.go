// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/ui/chat"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// runTUI opens the full-screen chat. Logs go to a file while it runs.
func runTUI(cmd *cobra.Command, g *globalOptions) error {
	if !isTerminal(g.stdin) || !IsStdoutTTY() {
		return newUsageError(`the chat screen needs a terminal; use "rigchat ask" or "rigchat chat" when piping`)
	}

	rt, err := g.open(logToFile, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	theme := styles.NewThemeFor(ColorProfile(), lipgloss.HasDarkBackground())
	return chat.Run(cmd.Context(), rt.service, rt.monitor, chat.Options{
		RenderMarkdown: rt.cfg.UI.RenderMarkdown,
		Theme:          theme,
	})
}
