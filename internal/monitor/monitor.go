// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package monitor watches whether Ollama is reachable.
//
// A Monitor probes on an interval and reports transitions between
// reachable and unreachable. RunUntilAvailable mirrors the startup
// behaviour of a chat client: warn once, then keep re-checking quietly
// until the server comes up.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the time between probes.
const DefaultInterval = 10 * time.Second

// Prober finds a reachable server. *ollama.Client implements it.
type Prober interface {
	Resolve(ctx context.Context) (string, error)
}

// StatusChange describes the server state after a transition.
type StatusChange struct {
	Available bool      `json:"available"`
	BaseURL   string    `json:"base_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"checked_at"`
}

// Monitor probes a server periodically.
type Monitor struct {
	prober   Prober
	interval time.Duration

	mu       sync.RWMutex
	current  StatusChange
	checked  bool
	handlers []func(StatusChange)
}

// New creates a monitor probing every interval (DefaultInterval when zero).
func New(prober Prober, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{prober: prober, interval: interval}
}

// OnChange registers fn to be called on every transition, including the
// result of the first probe. Handlers run on the monitor goroutine.
func (m *Monitor) OnChange(fn func(StatusChange)) {
	m.mu.Lock()
	m.handlers = append(m.handlers, fn)
	m.mu.Unlock()
}

// Current returns the last observed state and whether any probe has
// completed yet.
func (m *Monitor) Current() (StatusChange, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.checked
}

// Run probes immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	return m.run(ctx, false)
}

// RunUntilAvailable probes like Run but returns as soon as the server is
// reachable.
func (m *Monitor) RunUntilAvailable(ctx context.Context) error {
	return m.run(ctx, true)
}

func (m *Monitor) run(ctx context.Context, untilAvailable bool) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if st := m.Check(ctx); st.Available && untilAvailable {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Check probes once, records the result and notifies handlers if the
// state changed.
func (m *Monitor) Check(ctx context.Context) StatusChange {
	st := StatusChange{At: time.Now()}
	base, err := m.prober.Resolve(ctx)
	if err != nil {
		st.Error = err.Error()
	} else {
		st.Available = true
		st.BaseURL = base
	}

	m.mu.Lock()
	changed := !m.checked || m.current.Available != st.Available || m.current.BaseURL != st.BaseURL
	m.current = st
	m.checked = true
	handlers := append([]func(StatusChange){}, m.handlers...)
	m.mu.Unlock()

	if !changed {
		return st
	}
	if st.Available {
		slog.Info("ollama_available", "base_url", st.BaseURL)
	} else {
		slog.Warn("ollama_unavailable", "error", st.Error, "retry_in", m.interval)
	}
	for _, fn := range handlers {
		fn(st)
	}
	return st
}
