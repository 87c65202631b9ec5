// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// MOCK OLLAMA SERVER
// =============================================================================

// mockOllama is a scripted Ollama server for tests.
type mockOllama struct {
	t *testing.T

	mu     sync.Mutex
	models []string

	// pullAdds controls whether a pull installs the requested model.
	pullAdds bool
	// pullError, when set, is sent as an error record in the pull stream.
	pullError string

	// chatLines are written one by one (flushed) for streaming chat.
	chatLines []string
	// chatBody is returned for non-streaming chat.
	chatBody string

	tagsCalls atomic.Int32
	pullCalls atomic.Int32
	chatCalls atomic.Int32

	lastChat     ChatRequest
	lastChatBody []byte

	server *httptest.Server
}

func newMockOllama(t *testing.T, models ...string) *mockOllama {
	t.Helper()
	m := &mockOllama{t: t, models: models, pullAdds: true}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", m.handleTags)
	mux.HandleFunc("POST /api/pull", m.handlePull)
	mux.HandleFunc("POST /api/chat", m.handleChat)

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockOllama) URL() string { return m.server.URL }

func (m *mockOllama) LastChat() ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChat
}

// LastChatBody returns the raw JSON of the last chat request.
func (m *mockOllama) LastChatBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.lastChatBody)
}

func (m *mockOllama) handleTags(w http.ResponseWriter, r *http.Request) {
	m.tagsCalls.Add(1)
	m.mu.Lock()
	resp := ListModelsResponse{}
	for _, name := range m.models {
		resp.Models = append(resp.Models, ModelInfo{Name: name})
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (m *mockOllama) handlePull(w http.ResponseWriter, r *http.Request) {
	m.pullCalls.Add(1)
	var req PullRequest
	json.NewDecoder(r.Body).Decode(&req)

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	enc.Encode(PullProgress{Status: "pulling manifest"})
	enc.Encode(PullProgress{Status: "downloading", Total: 100, Completed: 50})
	if m.pullError != "" {
		enc.Encode(PullProgress{Error: m.pullError})
		return
	}
	enc.Encode(PullProgress{Status: "success"})

	if m.pullAdds {
		m.mu.Lock()
		m.models = append(m.models, req.Name)
		m.mu.Unlock()
	}
}

func (m *mockOllama) handleChat(w http.ResponseWriter, r *http.Request) {
	m.chatCalls.Add(1)
	body, _ := io.ReadAll(r.Body)
	var req ChatRequest
	json.Unmarshal(body, &req)
	m.mu.Lock()
	m.lastChat = req
	m.lastChatBody = body
	m.mu.Unlock()

	if !req.Stream {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(m.chatBody))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	for _, line := range m.chatLines {
		w.Write([]byte(line))
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// =============================================================================
// CANDIDATE HELPERS
// =============================================================================

// deadURL returns the address of a server that has been shut down, so
// connecting to it fails immediately.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

// statusServer always answers with code and an Ollama error body.
func statusServer(t *testing.T, code int, msg string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(OllamaError{Error: msg})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// slowServer waits delay (or until the client goes away) before answering 200.
func slowServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(candidates ...string) *Client {
	return NewClientWithConfig(&ClientConfig{
		Candidates:      candidates,
		HealthTimeout:   time.Second,
		DispatchTimeout: 2 * time.Second,
	})
}

// newTestServer starts a server with handler and returns its URL.
func newTestServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}
