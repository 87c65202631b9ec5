// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	"github.com/jeranaias/rigchat/internal/ollama"
)

// terminalSink forwards events until the first error or done event and
// drops everything after it, so a caller sees at most one terminal event.
type terminalSink struct {
	next ollama.Sink

	mu   sync.Mutex
	done bool
}

func newTerminalSink(next ollama.Sink) *terminalSink {
	if next == nil {
		next = ollama.Discard
	}
	return &terminalSink{next: next}
}

func (s *terminalSink) Emit(ev ollama.StreamEvent) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	if ev.Kind == ollama.EventError || ev.Kind == ollama.EventDone {
		s.done = true
	}
	s.mu.Unlock()
	s.next.Emit(ev)
}

// terminated reports whether a terminal event has been forwarded.
func (s *terminalSink) terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
