// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/ollama"
)

// frameInterval caps viewport redraws during a stream at about 30fps.
const frameInterval = 33 * time.Millisecond

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer collects streamed text between frames. Write is called
// from the generation goroutine, Flush from the Bubble Tea loop.
type StreamingBuffer struct {
	mu     sync.Mutex
	buffer strings.Builder
	tokens int
}

// NewStreamingBuffer creates an empty buffer.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{}
}

// Write appends a content chunk.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(token)
	sb.tokens++
}

// Flush returns and clears the text written since the last flush.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.buffer.Len() == 0 {
		return "", false
	}
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokens = 0
	return content, true
}

// Reset discards buffered text.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.tokens = 0
}

// Pending returns the number of chunks waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokens
}

// Sink returns an ollama.Sink that writes content events to the buffer.
// Error and done events are ignored; the outcome reports them.
func (sb *StreamingBuffer) Sink() ollama.Sink {
	return ollama.SinkFunc(func(ev ollama.StreamEvent) {
		if ev.Kind == ollama.EventContent {
			sb.Write(ev.Content)
		}
	})
}

func streamTickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// generateCmd runs one generation and reports its outcome.
func generateCmd(ctx context.Context, svc Service, id int, convID, prompt string, buf *StreamingBuffer) tea.Cmd {
	return func() tea.Msg {
		out, err := svc.Send(ctx, convID, prompt, buf.Sink())
		return GenerationDoneMsg{ID: id, ConversationID: convID, Outcome: out, Err: err}
	}
}

// =============================================================================
// CANCELLATION
// =============================================================================

// cancelManager holds the cancel func of the running generation. It is
// shared by pointer so model copies made by Update see the same one.
type cancelManager struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel != nil {
		cm.cancel()
	}
	cm.cancel = fn
}

// stop cancels the running generation, if any. Safe to call repeatedly.
func (cm *cancelManager) stop() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel == nil {
		return false
	}
	cm.cancel()
	cm.cancel = nil
	return true
}
