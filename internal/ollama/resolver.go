// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// =============================================================================
// ADDRESS RESOLVER
// =============================================================================

// Resolver health-checks the candidate addresses.
//
// Resolution is never cached: the server may come up on a different loopback
// form between two calls, so every Resolve walks the whole list again.
type Resolver struct {
	candidates []string
	path       string
	timeout    time.Duration
	httpClient *http.Client
}

// NewResolver creates a resolver probing path on each candidate.
func NewResolver(candidates []string, path string, timeout time.Duration, httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Resolver{
		candidates: candidates,
		path:       path,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Resolve returns the first candidate answering the health probe with a 2xx
// status. It fails with ErrUnavailable when none does.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	_, baseURL, err := firstSuccess(ctx, r.candidates, r.timeout, r.probe, acceptStatus, nil)
	if err != nil {
		slog.Warn("ollama_unavailable", "candidates", len(r.candidates), "error", err)
		return "", &ClientError{Type: ErrTypeServerUnreachable, Message: ErrUnavailable.Message, Cause: err}
	}
	slog.Debug("ollama_resolved", "base_url", baseURL)
	return baseURL, nil
}

// Available reports whether any candidate passes the health probe.
func (r *Resolver) Available(ctx context.Context) bool {
	_, err := r.Resolve(ctx)
	return err == nil
}

// Candidates returns a copy of the ordered candidate list.
func (r *Resolver) Candidates() []string {
	out := make([]string, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// probe performs one health check. The body is drained and the scope closed
// before returning; only the status code matters.
func (r *Resolver) probe(scope *attemptScope, baseURL string) (int, error) {
	defer scope.Close()

	req, err := http.NewRequestWithContext(scope.Context(), http.MethodGet, baseURL+r.path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

func acceptStatus(code int) error {
	if code < 200 || code > 299 {
		return &StatusError{Code: code}
	}
	return nil
}
