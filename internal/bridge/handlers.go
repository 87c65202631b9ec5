// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/jeranaias/rigchat/internal/app"
	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/monitor"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
)

// maxBodyBytes bounds request bodies; a conversation with long replies
// still fits comfortably.
const maxBodyBytes = 8 << 20

// =============================================================================
// REQUEST TYPES
// =============================================================================

// UpdateChatRequest is the body of PUT /api/chats/{id}.
type UpdateChatRequest struct {
	Messages []model.Message `json:"messages"`
}

// GenerateRequest is the body of POST /api/generate. With ChatID set the
// prompt is appended to that conversation and the reply stored; otherwise
// History is used as given and nothing is persisted.
type GenerateRequest struct {
	Prompt  string          `json:"prompt"`
	History []model.Message `json:"history,omitempty"`
	ChatID  string          `json:"chat_id,omitempty"`
	Stream  bool            `json:"stream,omitempty"`
}

// ModelRequest is the body of PUT /api/model and the reply of GET.
type ModelRequest struct {
	Model string `json:"model"`
}

// StatusResponse is the reply of GET /api/status.
type StatusResponse struct {
	Service app.Status            `json:"service"`
	Monitor *monitor.StatusChange `json:"monitor,omitempty"`
}

// outcomeLine is the last line of a streamed generation.
type outcomeLine struct {
	Type string `json:"type"`
	chat.Outcome
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func validateMessages(msgs []model.Message) error {
	for i, m := range msgs {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: invalid role %q", i, m.Role)
		}
	}
	return nil
}

// =============================================================================
// CHAT HISTORY
// =============================================================================

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		results, err := s.service.SearchChats(q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		convs := make([]model.Conversation, len(results))
		for i, res := range results {
			convs[i] = res.Conversation
		}
		writeJSON(w, http.StatusOK, convs)
		return
	}

	convs, err := s.service.GetChatHistory()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

// handleSaveChat stores the posted conversation, or a fresh empty one
// when the body is empty.
func (s *Server) handleSaveChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		conv, err := s.service.NewChat()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, conv)
		return
	}

	conv := model.NewConversation()
	defaults := *conv
	if err := json.Unmarshal(body, conv); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if conv.ID == "" {
		conv.ID = defaults.ID
	}
	if conv.Title == "" {
		conv.Title = defaults.Title
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = defaults.CreatedAt
	}
	if err := validateMessages(conv.Messages); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.SaveChat(*conv); err != nil {
		if errors.Is(err, storage.ErrDuplicateConversation) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleUpdateChat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req UpdateChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateMessages(req.Messages); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.service.UpdateChat(id, req.Messages)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, storage.ErrConversationNotFound.Error())
		return
	}

	conv, err := s.service.GetChat(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// handleDeleteChat answers 204 whether or not the conversation existed.
func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteChat(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GENERATION
// =============================================================================

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if err := validateMessages(req.History); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.service.Busy() {
		writeJSON(w, http.StatusConflict, chat.Failed(app.ErrBusy.Error(), s.service.GetModelName()))
		return
	}

	if req.Stream {
		s.streamGenerate(w, r, req)
		return
	}

	out, err := s.generate(r, req, nil)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	status := http.StatusOK
	if !out.Success && out.Error == app.ErrBusy.Error() {
		status = http.StatusConflict
	}
	writeJSON(w, status, out)
}

func (s *Server) generate(r *http.Request, req GenerateRequest, sink ollama.Sink) (chat.Outcome, error) {
	ctx := r.Context()
	if req.ChatID != "" {
		return s.service.Send(ctx, req.ChatID, req.Prompt, sink)
	}
	if sink == nil {
		return s.service.GenerateResponse(ctx, req.Prompt, req.History), nil
	}
	return s.service.GenerateStreamingResponse(ctx, req.Prompt, req.History, sink), nil
}

func writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ndjsonSink writes each event as one flushed line.
type ndjsonSink struct {
	mu      sync.Mutex
	enc     *json.Encoder
	flusher http.Flusher
	err     error
}

func (n *ndjsonSink) write(v any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return
	}
	if n.err = n.enc.Encode(v); n.err == nil {
		n.flusher.Flush()
	}
}

func (n *ndjsonSink) Emit(ev ollama.StreamEvent) {
	n.write(ev)
}

func (s *Server) streamGenerate(w http.ResponseWriter, r *http.Request, req GenerateRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// The conversation lookup has to fail before headers go out.
	if req.ChatID != "" {
		if _, err := s.service.GetChat(req.ChatID); err != nil {
			writeGenerateError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &ndjsonSink{enc: json.NewEncoder(w), flusher: flusher}
	out, err := s.generate(r, req, sink)
	if err != nil {
		out = chat.Outcome{Success: false, Error: err.Error()}
	}
	sink.write(outcomeLine{Type: "outcome", Outcome: out})
	if sink.err != nil {
		s.logger.Debug("stream_client_gone", "error", sink.err)
	}
}

// =============================================================================
// MODELS
// =============================================================================

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.GetAvailableModels(r.Context()))
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelRequest{Model: s.service.GetModelName()})
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var req ModelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.service.SetModelName(req.Model); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ModelRequest{Model: s.service.GetModelName()})
}

// =============================================================================
// STATUS
// =============================================================================

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Service: s.service.Status(r.Context())}
	if s.monitor != nil {
		if cur, ok := s.monitor.Current(); ok {
			resp.Monitor = &cur
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
