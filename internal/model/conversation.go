// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultTitle is used until the first user message arrives.
	DefaultTitle = "New Conversation"

	// TitleLength is the number of characters of the first message kept in
	// a derived title.
	TitleLength = 30
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
}

// NewConversation creates an empty conversation with a fresh ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		CreatedAt: time.Now().UTC(),
		Messages:  make([]Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds msg to the end of the log. The first user message also sets
// the title when it is still the default.
func (c *Conversation) Append(msg Message) {
	if msg.Role == RoleUser && c.Title == DefaultTitle && !c.hasUserMessage() {
		c.Title = DeriveTitle(msg.Content)
	}
	c.Messages = append(c.Messages, msg)
}

// AppendUser creates and appends a user message.
func (c *Conversation) AppendUser(content string) Message {
	msg := NewUserMessage(content)
	c.Append(msg)
	return msg
}

// AppendAssistant creates and appends an assistant message.
func (c *Conversation) AppendAssistant(content string) Message {
	msg := NewAssistantMessage(content)
	c.Append(msg)
	return msg
}

// LastMessage returns the most recent message and whether there is one.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

func (c *Conversation) hasUserMessage() bool {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// DeriveTitle builds a title from the first characters of text, adding
// "..." when it was cut.
func DeriveTitle(text string) string {
	runes := []rune(norm.NFC.String(text))
	if len(runes) <= TitleLength {
		return string(runes)
	}
	return string(runes[:TitleLength]) + "..."
}

// Preview returns a short preview of the conversation.
func (c *Conversation) Preview(maxLen int) string {
	if len(c.Messages) == 0 {
		return "Empty conversation"
	}
	runes := []rune(c.Messages[0].Content)
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen]) + "..."
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return &clone
}
