// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log/slog"
	"time"
)

// State is the lifecycle stage of one generation.
type State int

const (
	StateIdle State = iota
	StateCheckingAvailability
	StateEnsuringModel
	StateDispatching
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCheckingAvailability:
		return "checking_availability"
	case StateEnsuringModel:
		return "ensuring_model"
	case StateDispatching:
		return "dispatching"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// generation tracks one request through its states.
type generation struct {
	id      uint64
	mode    string
	model   string
	state   State
	started time.Time

	// observe, when set, sees every transition (tests and the TUI status line).
	observe func(State)
}

func (g *generation) transition(next State) {
	prev := g.state
	g.state = next
	slog.Debug("generation_state",
		"id", g.id,
		"mode", g.mode,
		"model", g.model,
		"from", prev.String(),
		"to", next.String(),
	)
	if g.observe != nil {
		g.observe(next)
	}
}
