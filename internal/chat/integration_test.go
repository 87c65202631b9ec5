// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
)

// ollamaStub serves /api/tags, /api/pull and a streaming /api/chat.
type ollamaStub struct {
	server    *httptest.Server
	pullCalls atomic.Int32
	lastChat  atomic.Pointer[ollama.ChatRequest]
}

func newOllamaStub(t *testing.T, models ...string) *ollamaStub {
	t.Helper()
	s := &ollamaStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		resp := ollama.ListModelsResponse{}
		for _, m := range models {
			resp.Models = append(resp.Models, ollama.ModelInfo{Name: m})
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("POST /api/pull", func(w http.ResponseWriter, r *http.Request) {
		s.pullCalls.Add(1)
		json.NewEncoder(w).Encode(ollama.PullProgress{Status: "success"})
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req ollama.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.lastChat.Store(&req)

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, line := range []string{
			`{"message":{"role":"assistant","content":"ab"},"done":false}` + "\n" + `{"message":{"role":"assistant","content":"cd"},"done":false}` + "\n",
			`{"message":{"role":"assistant","content":""},"done":true}` + "\n",
		} {
			w.Write([]byte(line))
			flusher.Flush()
		}
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func deadAddress(t *testing.T) string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func clientFor(candidates ...string) *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		Candidates:      candidates,
		HealthTimeout:   time.Second,
		DispatchTimeout: 2 * time.Second,
	})
}

func TestIntegration_StreamingAgainstServer(t *testing.T) {
	stub := newOllamaStub(t, "deepseek")
	o := NewOrchestrator(clientFor(deadAddress(t), stub.server.URL), nil)
	rec := &recorder{}

	out := o.GenerateStreaming(context.Background(), Request{
		Model:   "deepseek",
		Prompt:  "hi",
		History: []model.Message{model.NewUserMessage("earlier"), model.NewAssistantMessage("reply")},
	}, rec)

	require.True(t, out.Success, out.Error)
	assert.Equal(t, "abcd", out.Response)
	assert.Equal(t, []ollama.StreamEvent{ollama.ContentEvent("ab"), ollama.ContentEvent("cd"), ollama.DoneEvent()}, rec.events)

	sent := stub.lastChat.Load()
	require.NotNil(t, sent)
	assert.True(t, sent.Stream)
	assert.Len(t, sent.Messages, 3)
	assert.Zero(t, stub.pullCalls.Load())
}

func TestIntegration_AllCandidatesDown(t *testing.T) {
	o := NewOrchestrator(clientFor(deadAddress(t), deadAddress(t)), nil)

	out := o.Generate(context.Background(), Request{Model: "deepseek", Prompt: "hi"})

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "not running")
}

func TestIntegration_MissingModelIsPulledOnce(t *testing.T) {
	// The stub never lists the model, so the re-check after the pull fails.
	stub := newOllamaStub(t)
	o := NewOrchestrator(clientFor(stub.server.URL), nil)

	out := o.Generate(context.Background(), Request{Model: "deepseek", Prompt: "hi"})

	assert.False(t, out.Success)
	assert.Equal(t, StillMissingMessage("deepseek"), out.Error)
	assert.Equal(t, int32(1), stub.pullCalls.Load())
}
