// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// API paths.
const (
	PathTags = "/api/tags"
	PathPull = "/api/pull"
	PathChat = "/api/chat"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// Candidates are the base URLs tried in order on every call
	// (default: DefaultCandidates)
	Candidates []string

	// HealthPath is probed by the resolver (default: /api/tags)
	HealthPath string

	// HealthTimeout bounds each health probe (default: 5s)
	HealthTimeout time.Duration

	// DispatchTimeout bounds each dispatch attempt (default: 10s)
	DispatchTimeout time.Duration

	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Candidates:      append([]string(nil), DefaultCandidates...),
		HealthPath:      PathTags,
		HealthTimeout:   5 * time.Second,
		DispatchTimeout: 10 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
// It provides methods for health checks, model management, and chat operations.
//
// The Client is thread-safe for concurrent use.
//
// Example:
//
//	client := ollama.NewClient()
//	if !client.Available(ctx) {
//	    log.Fatal("Ollama not available")
//	}
//	resp, err := client.Chat(ctx, ollama.ChatRequest{Model: "deepseek", Messages: messages})
type Client struct {
	config     *ClientConfig
	resolver   *Resolver
	dispatcher *Dispatcher
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if len(config.Candidates) == 0 {
		config.Candidates = append([]string(nil), DefaultCandidates...)
	}
	if config.HealthPath == "" {
		config.HealthPath = PathTags
	}
	if config.HealthTimeout == 0 {
		config.HealthTimeout = 5 * time.Second
	}
	if config.DispatchTimeout == 0 {
		config.DispatchTimeout = 10 * time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		config:     config,
		resolver:   NewResolver(config.Candidates, config.HealthPath, config.HealthTimeout, httpClient),
		dispatcher: NewDispatcher(config.Candidates, config.DispatchTimeout, httpClient),
	}
}

// Config returns the client configuration.
func (c *Client) Config() *ClientConfig {
	return c.config
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Resolve returns the first candidate that passes the health probe.
func (c *Client) Resolve(ctx context.Context) (string, error) {
	return c.resolver.Resolve(ctx)
}

// Available reports whether Ollama is reachable on any candidate.
func (c *Client) Available(ctx context.Context) bool {
	return c.resolver.Available(ctx)
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// Chat sends a non-streaming chat request and returns the assistant text.
//
// A 2xx body without message content is reported as ErrInvalidResponseShape.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	resp, err := c.dispatcher.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        PathChat,
		Body:        body,
		LongRunning: true,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: ErrInvalidResponseShape.Message, Cause: err}
	}
	if result.Message == nil || result.Message.Content == "" {
		return "", ErrInvalidResponseShape
	}

	slog.Debug("chat_complete", "model", req.Model, "eval_count", result.EvalCount)
	return result.Message.Content, nil
}

// ChatStream sends a streaming chat request and feeds the body through the
// Reassembler. Events go to sink as they arrive; the joined content is
// returned once the stream ends.
//
// When dispatch fails no event is emitted; the caller owns reporting that.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, sink Sink) (string, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	resp, err := c.dispatcher.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        PathChat,
		Body:        body,
		LongRunning: true,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return Reassemble(ctx, resp.Body, sink)
}
