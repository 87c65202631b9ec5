// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	a := NewConversation()
	b := NewConversation()

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, DefaultTitle, a.Title)
	assert.NotNil(t, a.Messages)
	assert.Empty(t, a.Messages)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestAppend_FirstUserMessageSetsTitle(t *testing.T) {
	conv := NewConversation()
	conv.AppendUser("What is a goroutine?")
	conv.AppendAssistant("A lightweight thread.")
	conv.AppendUser("And a channel?")

	assert.Equal(t, "What is a goroutine?", conv.Title)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, RoleUser, conv.Messages[0].Role)
	assert.Equal(t, RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "And a channel?", conv.Messages[2].Content)
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "hello", "hello"},
		{"exactly thirty", strings.Repeat("a", 30), strings.Repeat("a", 30)},
		{"long", strings.Repeat("b", 31), strings.Repeat("b", 30) + "..."},
		{"multibyte", strings.Repeat("é", 35), strings.Repeat("é", 30) + "..."},
		{"decomposed is composed first", "e\u0301", "\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.in))
		})
	}
}

func TestAppend_CustomTitleKept(t *testing.T) {
	conv := NewConversation()
	conv.Title = "Pinned"
	conv.AppendUser("something else")
	assert.Equal(t, "Pinned", conv.Title)
}

func TestToOllama_PreservesOrder(t *testing.T) {
	msgs := []Message{
		NewUserMessage("one"),
		NewAssistantMessage("two"),
		NewUserMessage("three"),
	}

	got := ToOllama(msgs)
	require.Len(t, got, 3)
	for i, m := range msgs {
		assert.Equal(t, string(m.Role), got[i].Role)
		assert.Equal(t, m.Content, got[i].Content)
	}
}

func TestConversationJSONShape(t *testing.T) {
	conv := NewConversation()
	data, err := json.Marshal(conv)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "id")
	assert.Contains(t, raw, "title")
	assert.Contains(t, raw, "createdAt")
	assert.Equal(t, []any{}, raw["messages"])
}

func TestClone_IsIndependent(t *testing.T) {
	conv := NewConversation()
	conv.AppendUser("hi")

	clone := conv.Clone()
	clone.AppendAssistant("hello")

	assert.Len(t, conv.Messages, 1)
	assert.Len(t, clone.Messages, 2)
}

func TestRole(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
	assert.Equal(t, "You", RoleUser.DisplayName())
}
