// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app exposes the operations the presentation layers call: chat
// history CRUD, generation, model listing and model selection.
//
// Service owns the process-wide model selection and the single in-flight
// generation guard. The TUI, the REPL and the HTTP bridge all sit on top
// of one Service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
)

// ErrBusy is reported when a generation is requested while another one
// is still running.
var ErrBusy = errors.New("A response is already being generated. Please wait for it to finish.")

// ErrEmptyMessage is returned by Send for a blank prompt.
var ErrEmptyMessage = errors.New("empty message")

// Backend is the Ollama surface the service needs. *ollama.Client
// implements it.
type Backend interface {
	chat.Backend
	Resolve(ctx context.Context) (string, error)
	ModelList(ctx context.Context) ollama.ModelListResult
}

// Config holds the service settings taken from configuration.
type Config struct {
	// DefaultModel is used when no selection has been stored.
	DefaultModel string
	// Sampling options for chat calls (ollama.DefaultOptions when nil).
	Sampling *ollama.Options
	// Thinking turns on thinking mode initially.
	Thinking bool
}

// Service implements the boundary operations.
type Service struct {
	history *storage.History
	backend Backend
	orch    *chat.Orchestrator

	mu        sync.RWMutex
	modelName string
	progress  ollama.PullProgressFunc

	thinking atomic.Bool
	busy     atomic.Bool
}

// New creates a Service and loads the model selection from history.
func New(history *storage.History, backend Backend, cfg Config) (*Service, error) {
	name, ok, err := history.LookupModelName()
	if err != nil {
		return nil, fmt.Errorf("load model selection: %w", err)
	}
	if !ok {
		name = cfg.DefaultModel
	}
	if name == "" {
		name = storage.DefaultModelName
	}

	s := &Service{
		history:   history,
		backend:   backend,
		orch:      chat.NewOrchestrator(backend, cfg.Sampling),
		modelName: name,
	}
	s.thinking.Store(cfg.Thinking)
	slog.Debug("service_ready", "model", name)
	return s, nil
}

// =============================================================================
// CHAT HISTORY
// =============================================================================

// GetChatHistory returns every stored conversation.
func (s *Service) GetChatHistory() ([]model.Conversation, error) {
	return s.history.List()
}

// GetChat returns one conversation.
func (s *Service) GetChat(id string) (*model.Conversation, error) {
	return s.history.Get(id)
}

// SaveChat stores a new conversation.
func (s *Service) SaveChat(conv model.Conversation) error {
	return s.history.Save(conv)
}

// NewChat creates, stores and returns an empty conversation.
func (s *Service) NewChat() (*model.Conversation, error) {
	conv := model.NewConversation()
	if err := s.history.Save(*conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// UpdateChat replaces the messages of conversation id. It reports false
// when the conversation does not exist.
func (s *Service) UpdateChat(id string, messages []model.Message) (bool, error) {
	return s.history.Update(id, messages)
}

// DeleteChat removes conversation id.
func (s *Service) DeleteChat(id string) error {
	return s.history.Delete(id)
}

// SearchChats finds conversations by title or content.
func (s *Service) SearchChats(query string) ([]storage.SearchResult, error) {
	return s.history.Search(query)
}

// =============================================================================
// GENERATION
// =============================================================================

// GenerateResponse runs a single-shot generation of prompt after history
// with the selected model.
func (s *Service) GenerateResponse(ctx context.Context, prompt string, history []model.Message) chat.Outcome {
	if !s.acquire() {
		return s.busyOutcome(nil)
	}
	defer s.release()

	return s.generate(ctx, prompt, history, nil)
}

// GenerateStreamingResponse is GenerateResponse with events sent to sink
// as they arrive.
func (s *Service) GenerateStreamingResponse(ctx context.Context, prompt string, history []model.Message, sink ollama.Sink) chat.Outcome {
	if !s.acquire() {
		return s.busyOutcome(sink)
	}
	defer s.release()

	return s.generate(ctx, prompt, history, sink)
}

// Send appends prompt to conversation id, generates a reply and appends
// it. The user message is stored before the generation starts; the reply
// is stored only on success. With a nil sink the generation is single-shot.
//
// A request rejected as busy leaves the conversation untouched. When the
// conversation ends with the same prompt still unanswered, that message is
// reused instead of appended again.
func (s *Service) Send(ctx context.Context, id, prompt string, sink ollama.Sink) (chat.Outcome, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return chat.Outcome{}, ErrEmptyMessage
	}

	if !s.acquire() {
		return s.busyOutcome(sink), nil
	}
	defer s.release()

	conv, err := s.history.Get(id)
	if err != nil {
		return chat.Outcome{}, err
	}

	history := conv.Messages
	if last, ok := conv.LastMessage(); ok && last.Role == model.RoleUser && last.Content == prompt {
		history = history[:len(history)-1]
		slog.Debug("send_retry", "conversation", id)
	} else {
		conv.AppendUser(prompt)
		if _, err := s.history.Update(id, conv.Messages); err != nil {
			return chat.Outcome{}, err
		}
	}

	out := s.generate(ctx, prompt, history, sink)
	if !out.Success {
		return out, nil
	}

	conv.AppendAssistant(out.Response)
	if _, err := s.history.Update(id, conv.Messages); err != nil {
		return out, err
	}
	return out, nil
}

// generate runs one generation. The caller holds the busy flag.
func (s *Service) generate(ctx context.Context, prompt string, history []model.Message, sink ollama.Sink) chat.Outcome {
	req := s.request(prompt, history)
	if sink == nil {
		return s.orch.Generate(ctx, req)
	}
	return s.orch.GenerateStreaming(ctx, req, sink)
}

func (s *Service) acquire() bool { return s.busy.CompareAndSwap(false, true) }

func (s *Service) release() { s.busy.Store(false) }

// busyOutcome reports ErrBusy, on sink too when there is one.
func (s *Service) busyOutcome(sink ollama.Sink) chat.Outcome {
	out := chat.Failed(ErrBusy.Error(), s.GetModelName())
	if sink != nil {
		sink.Emit(ollama.ErrorEvent(out.Error))
	}
	return out
}

// Busy reports whether a generation is in flight.
func (s *Service) Busy() bool {
	return s.busy.Load()
}

func (s *Service) request(prompt string, history []model.Message) chat.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chat.Request{
		Model:    s.modelName,
		Prompt:   prompt,
		History:  history,
		Thinking: s.thinking.Load(),
		Progress: s.progress,
	}
}

// =============================================================================
// MODELS
// =============================================================================

// GetAvailableModels lists the models installed on the server.
func (s *Service) GetAvailableModels(ctx context.Context) ollama.ModelListResult {
	return s.backend.ModelList(ctx)
}

// GetModelName returns the selected model.
func (s *Service) GetModelName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelName
}

// SetModelName selects name and persists the selection.
func (s *Service) SetModelName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("model name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.history.SetModelName(name); err != nil {
		return err
	}
	prev := s.modelName
	s.modelName = name
	slog.Info("model_selected", "model", name, "previous", prev)
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// SetThinking turns thinking mode on or off.
func (s *Service) SetThinking(on bool) {
	s.thinking.Store(on)
}

// Thinking reports whether thinking mode is on.
func (s *Service) Thinking() bool {
	return s.thinking.Load()
}

// SetPullProgress installs a callback for model pull progress.
func (s *Service) SetPullProgress(fn ollama.PullProgressFunc) {
	s.mu.Lock()
	s.progress = fn
	s.mu.Unlock()
}

// SetSampling replaces the sampling options for later generations.
func (s *Service) SetSampling(opts ollama.Options) {
	s.orch.SetOptions(opts)
}

// =============================================================================
// STATUS
// =============================================================================

// Status is a point-in-time view of the service.
type Status struct {
	Available bool   `json:"available"`
	BaseURL   string `json:"base_url,omitempty"`
	Model     string `json:"model"`
	Busy      bool   `json:"busy"`
	Thinking  bool   `json:"thinking"`
	Error     string `json:"error,omitempty"`
}

// Status probes the server and reports the current state.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{
		Model:    s.GetModelName(),
		Busy:     s.Busy(),
		Thinking: s.Thinking(),
	}
	base, err := s.backend.Resolve(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Available = true
	st.BaseURL = base
	return st
}
