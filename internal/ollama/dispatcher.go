// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/jeranaias/rigchat/internal/telemetry"
)

// =============================================================================
// REQUEST DISPATCHER
// =============================================================================

// Request describes one logical call to the inference server.
type Request struct {
	Method string
	Path   string
	Body   []byte // replayed on every attempt

	// LongRunning marks generation and pull calls. Their per-attempt deadline
	// only covers obtaining a connection; once the server has accepted the
	// request it is allowed to run to completion.
	LongRunning bool
}

// Dispatcher sends a request to each candidate address in turn and returns
// the first 2xx response.
type Dispatcher struct {
	candidates []string
	timeout    time.Duration
	httpClient *http.Client
}

// NewDispatcher creates a dispatcher with the given per-attempt timeout.
func NewDispatcher(candidates []string, timeout time.Duration, httpClient *http.Client) *Dispatcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Dispatcher{
		candidates: candidates,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Do dispatches req. The caller must close the returned body.
//
// A non-2xx answer is recorded as the last error and the next candidate is
// tried. When every candidate fails the error is a ClientError of type
// ErrTypeServerUnreachable carrying the last observed failure.
func (d *Dispatcher) Do(ctx context.Context, req Request) (*http.Response, error) {
	try := func(scope *attemptScope, baseURL string) (*http.Response, error) {
		return d.attempt(scope, baseURL, req)
	}
	accept := func(resp *http.Response) error {
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return nil
		}
		return statusErrorFrom(resp)
	}
	release := func(resp *http.Response) {
		resp.Body.Close()
	}

	resp, baseURL, err := firstSuccess(ctx, d.candidates, d.timeout, try, accept, release)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("dispatch_failed", "method", req.Method, "endpoint", req.Path, "error", err)
		return nil, &ClientError{Type: ErrTypeServerUnreachable, Message: "Failed to connect to Ollama", Cause: err}
	}

	slog.Debug("dispatch_ok", "method", req.Method, "endpoint", req.Path, "base_url", baseURL, "status", resp.StatusCode)
	return resp, nil
}

// DoJSON dispatches a request with in as the JSON body (nil for none) and
// decodes the response into out. A body that does not decode is reported as
// ErrInvalidResponseShape.
func (d *Dispatcher) DoJSON(ctx context.Context, method, path string, in, out any) error {
	req := Request{Method: method, Path: path}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		req.Body = body
	}

	resp, err := d.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: ErrInvalidResponseShape.Message, Cause: err}
	}
	return nil
}

// attempt sends req to a single base address.
func (d *Dispatcher) attempt(scope *attemptScope, baseURL string, req Request) (*http.Response, error) {
	ctx := scope.Context()
	if req.LongRunning {
		ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
			GotConn: func(httptrace.GotConnInfo) { scope.StopDeadline() },
		})
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, baseURL+req.Path, body)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("dispatch_attempt", "method", req.Method, "url", baseURL+req.Path)
	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		telemetry.RecordDispatchAttempt(req.Path, false)
		return nil, err
	}
	telemetry.RecordDispatchAttempt(req.Path, resp.StatusCode >= 200 && resp.StatusCode <= 299)

	resp.Body = &scopedBody{ReadCloser: resp.Body, scope: scope}
	return resp, nil
}

// statusErrorFrom builds a StatusError, picking up Ollama's {"error": ...}
// body when there is one.
func statusErrorFrom(resp *http.Response) error {
	se := &StatusError{Code: resp.StatusCode}
	var ollamaErr OllamaError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &ollamaErr) == nil && ollamaErr.Error != "" {
		se.Detail = ollamaErr.Error
	}
	return se
}
