// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/jeranaias/rigchat/internal/model"
)

// DefaultModelName is the model selected when none has been stored.
const DefaultModelName = "deepseek"

// =============================================================================
// HISTORY
// =============================================================================

// History manages the conversation list and model selection stored in a KV.
// Every mutation is written through to the store before returning.
type History struct {
	kv KV
	mu sync.Mutex
}

// NewHistory creates a History over kv.
func NewHistory(kv KV) *History {
	return &History{kv: kv}
}

// List returns every stored conversation in insertion order.
func (h *History) List() ([]model.Conversation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Get returns the conversation with id.
func (h *History) Get(id string) (*model.Conversation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	convs, err := h.load()
	if err != nil {
		return nil, err
	}
	if i := indexOf(convs, id); i >= 0 {
		return convs[i].Clone(), nil
	}
	return nil, ErrConversationNotFound
}

// Save appends conv to the stored list.
func (h *History) Save(conv model.Conversation) error {
	if conv.ID == "" {
		return &StoreError{Op: "save", Message: "conversation has no id"}
	}
	if conv.Messages == nil {
		conv.Messages = make([]model.Message, 0)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	convs, err := h.load()
	if err != nil {
		return err
	}
	if indexOf(convs, conv.ID) >= 0 {
		return &StoreError{Op: "save", Message: ErrDuplicateConversation.Message, Key: conv.ID}
	}
	convs = append(convs, conv)
	if err := h.kv.Set(KeyConversations, convs); err != nil {
		return err
	}
	slog.Debug("conversation_saved", "id", conv.ID, "count", len(convs))
	return nil
}

// Update replaces the message list of conversation id. It reports false
// when no such conversation exists. A conversation still carrying the
// default title is retitled from its first user message.
func (h *History) Update(id string, messages []model.Message) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	convs, err := h.load()
	if err != nil {
		return false, err
	}
	i := indexOf(convs, id)
	if i < 0 {
		return false, nil
	}

	msgs := make([]model.Message, len(messages))
	copy(msgs, messages)
	convs[i].Messages = msgs
	if convs[i].Title == model.DefaultTitle {
		for _, m := range msgs {
			if m.Role == model.RoleUser {
				convs[i].Title = model.DeriveTitle(m.Content)
				break
			}
		}
	}

	if err := h.kv.Set(KeyConversations, convs); err != nil {
		return false, err
	}
	slog.Debug("conversation_updated", "id", id, "messages", len(msgs))
	return true, nil
}

// Delete removes conversation id. Deleting an unknown id is not an error.
func (h *History) Delete(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	convs, err := h.load()
	if err != nil {
		return err
	}
	i := indexOf(convs, id)
	if i < 0 {
		return nil
	}
	convs = append(convs[:i], convs[i+1:]...)
	if err := h.kv.Set(KeyConversations, convs); err != nil {
		return err
	}
	slog.Debug("conversation_deleted", "id", id)
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchResult is a conversation matching a query.
type SearchResult struct {
	Conversation model.Conversation
	// Matches holds the indexes of messages containing the query.
	Matches []int
	// TitleMatch is set when the title itself matched.
	TitleMatch bool
}

// Search finds conversations whose title or message content contains query,
// ignoring case. Results with a title match come first, then by newest.
func (h *History) Search(query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	convs, err := h.List()
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(query)

	var results []SearchResult
	for _, conv := range convs {
		res := SearchResult{Conversation: conv}
		res.TitleMatch = strings.Contains(fold.String(conv.Title), needle)
		for i, msg := range conv.Messages {
			if strings.Contains(fold.String(msg.Content), needle) {
				res.Matches = append(res.Matches, i)
			}
		}
		if res.TitleMatch || len(res.Matches) > 0 {
			results = append(results, res)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TitleMatch != results[j].TitleMatch {
			return results[i].TitleMatch
		}
		return results[i].Conversation.CreatedAt.After(results[j].Conversation.CreatedAt)
	})
	return results, nil
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

// ModelName returns the stored model selection, or DefaultModelName.
func (h *History) ModelName() (string, error) {
	name, ok, err := h.LookupModelName()
	if err != nil || !ok {
		return DefaultModelName, err
	}
	return name, nil
}

// LookupModelName returns the stored model selection and whether one has
// been stored.
func (h *History) LookupModelName() (string, bool, error) {
	var name string
	ok, err := h.kv.Get(KeyModelName, &name)
	if err != nil {
		return "", false, err
	}
	return name, ok && name != "", nil
}

// SetModelName stores the model selection.
func (h *History) SetModelName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &StoreError{Op: "set", Key: KeyModelName, Message: "model name is empty"}
	}
	return h.kv.Set(KeyModelName, name)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *History) load() ([]model.Conversation, error) {
	convs := make([]model.Conversation, 0)
	if _, err := h.kv.Get(KeyConversations, &convs); err != nil {
		return nil, err
	}
	for i := range convs {
		if convs[i].Messages == nil {
			convs[i].Messages = make([]model.Message, 0)
		}
	}
	return convs, nil
}

func indexOf(convs []model.Conversation, id string) int {
	for i := range convs {
		if convs[i].ID == id {
			return i
		}
	}
	return -1
}
