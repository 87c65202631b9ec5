// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/monitor"
	"github.com/jeranaias/rigchat/internal/ollama"
)

// Run starts the chat screen and blocks until the user quits or ctx ends.
// mon may be nil; when set it is run for the lifetime of the screen and
// its transitions drive the status bar.
func Run(ctx context.Context, svc Service, mon *monitor.Monitor, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		New(ctx, svc, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	svc.SetPullProgress(func(pp ollama.PullProgress) {
		p.Send(PullProgressMsg{Progress: pp})
	})
	defer svc.SetPullProgress(nil)

	if mon != nil {
		mon.OnChange(func(sc monitor.StatusChange) {
			p.Send(ServerStatusMsg{Status: sc})
		})
		go func() {
			_ = mon.Run(ctx)
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat screen: %w", err)
	}
	return nil
}
