// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	core "github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/monitor"
	"github.com/jeranaias/rigchat/internal/ollama"
)

// =============================================================================
// GENERATION MESSAGES
// =============================================================================

// StreamTickMsg drains the streaming buffer.
type StreamTickMsg struct {
	Time time.Time
}

// GenerationDoneMsg carries the result of Service.Send.
type GenerationDoneMsg struct {
	// ID matches the generation that produced it; stale results are dropped.
	ID             int
	ConversationID string
	Outcome        core.Outcome
	Err            error
}

// PullProgressMsg reports a model download in progress.
type PullProgressMsg struct {
	Progress ollama.PullProgress
}

// =============================================================================
// DATA MESSAGES
// =============================================================================

// ConversationsMsg delivers the stored conversations for the picker.
type ConversationsMsg struct {
	Conversations []model.Conversation
	Err           error
}

// ModelsMsg delivers the installed models for the picker.
type ModelsMsg struct {
	Result ollama.ModelListResult
}

// ServerStatusMsg is published by the availability monitor.
type ServerStatusMsg struct {
	Status monitor.StatusChange
}
