// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message in the conversation.
type Message struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // The message content
}

// ChatRequest is the request body for /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`             // Model name (e.g., "deepseek")
	Messages []Message `json:"messages"`          // Conversation history plus the new prompt
	Stream   bool      `json:"stream"`            // Enable streaming
	Options  *Options  `json:"options,omitempty"` // Sampling parameters
}

// Options contains model parameters for inference.
type Options struct {
	Temperature float64 `json:"temperature"` // 0.0-2.0
	TopP        float64 `json:"top_p"`       // 0.0-1.0
}

// DefaultOptions returns the sampling parameters used when none are configured.
func DefaultOptions() *Options {
	return &Options{Temperature: 0.7, TopP: 0.95}
}

// PullRequest is the request body for /api/pull endpoint.
type PullRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is the response from /api/chat endpoint.
//
// Message is a pointer so a body without a "message" object can be told
// apart from one with empty content.
type ChatResponse struct {
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
	Message    *Message  `json:"message"`
	Done       bool      `json:"done"`
	DoneReason string    `json:"done_reason,omitempty"`
	EvalCount  int       `json:"eval_count,omitempty"` // number of tokens generated
}

// PullProgress is one record of the /api/pull progress stream.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Percent returns download completion in the range 0-100, or -1 when the
// record carries no byte counts.
func (p PullProgress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo contains information about a model.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Digest     string    `json:"digest,omitempty"`
}

// ListModelsResponse is the response from /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelListResult is the boundary shape of a model listing.
type ModelListResult struct {
	Success bool        `json:"success"`
	Models  []ModelInfo `json:"models"`
	Error   string      `json:"error,omitempty"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// EventKind tags a StreamEvent.
type EventKind string

const (
	EventContent EventKind = "content"
	EventError   EventKind = "error"
	EventDone    EventKind = "done"
)

// StreamEvent is one event delivered to a Sink during a streaming generation.
type StreamEvent struct {
	Kind    EventKind `json:"type"`
	Content string    `json:"content,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// ContentEvent builds a content event.
func ContentEvent(text string) StreamEvent {
	return StreamEvent{Kind: EventContent, Content: text}
}

// ErrorEvent builds an error event.
func ErrorEvent(msg string) StreamEvent {
	return StreamEvent{Kind: EventError, Error: msg}
}

// DoneEvent builds the terminal done event.
func DoneEvent() StreamEvent {
	return StreamEvent{Kind: EventDone}
}

// Sink receives stream events. Emit is called synchronously from the
// goroutine consuming the stream, in arrival order.
type Sink interface {
	Emit(StreamEvent)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(StreamEvent)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev StreamEvent) { f(ev) }

// ChanSink delivers events on a channel. Emit blocks until the receiver is
// ready, which applies back-pressure to the stream.
type ChanSink chan<- StreamEvent

// Emit sends ev on the channel.
func (c ChanSink) Emit(ev StreamEvent) { c <- ev }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(StreamEvent) {})

// =============================================================================
// ERROR TYPES
// =============================================================================

// OllamaError represents an error from the Ollama API.
type OllamaError struct {
	Error string `json:"error"`
}

// =============================================================================
// HELPER METHODS
// =============================================================================

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
