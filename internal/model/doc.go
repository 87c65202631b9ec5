// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// Conversations are append-only logs: messages are never edited or
// reordered, and an update replaces the whole message list.
//
// # Key Types
//
//   - Conversation: id, title, creation time and ordered messages
//   - Message: role, content and timestamp
//   - Role: user or assistant
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.AppendUser("Hello!")
//	history := model.ToOllama(conv.Messages)
package model
