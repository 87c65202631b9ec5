// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// =============================================================================
// CANDIDATE ITERATION
// =============================================================================

// DefaultCandidates are the loopback forms Ollama may be listening on.
// They all point at the same port; which one answers depends on how the
// server bound its socket.
var DefaultCandidates = []string{
	"http://127.0.0.1:11434",
	"http://localhost:11434",
	"http://[::1]:11434",
}

// attemptScope owns the context and deadline of a single try against one
// candidate. Ownership passes to the result on success (see scopedBody).
type attemptScope struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timer   *time.Timer
	expired atomic.Bool
}

func newAttemptScope(parent context.Context, timeout time.Duration) *attemptScope {
	ctx, cancel := context.WithCancel(parent)
	s := &attemptScope{ctx: ctx, cancel: cancel}
	s.timer = time.AfterFunc(timeout, func() {
		s.expired.Store(true)
		cancel()
	})
	return s
}

// Context returns the attempt context. It is cancelled when the deadline
// fires or the scope is closed.
func (s *attemptScope) Context() context.Context {
	return s.ctx
}

// StopDeadline disarms the deadline but keeps the context alive.
func (s *attemptScope) StopDeadline() {
	s.timer.Stop()
}

// Close releases the scope. Safe to call more than once.
func (s *attemptScope) Close() {
	s.timer.Stop()
	s.cancel()
}

// scopedBody ties an attempt scope to a response body so the per-attempt
// context lives exactly as long as the body.
type scopedBody struct {
	io.ReadCloser
	scope *attemptScope
}

func (b *scopedBody) Close() error {
	err := b.ReadCloser.Close()
	b.scope.Close()
	return err
}

// errNoCandidates is returned when the candidate list is empty.
var errNoCandidates = errors.New("no candidate addresses configured")

// firstSuccess tries each candidate in order and returns the first result
// that accept approves, together with the base address that produced it.
//
// Every candidate gets its own deadline of timeout. A failed try (error or
// rejected by accept) is logged and the next candidate is attempted; release
// is called on rejected results so their resources are freed. When every
// candidate fails, the error from the last one is returned.
//
// On success the scope belongs to the result: try must either close it or
// hand it to something that will (scopedBody).
func firstSuccess[T any](
	ctx context.Context,
	candidates []string,
	timeout time.Duration,
	try func(scope *attemptScope, baseURL string) (T, error),
	accept func(T) error,
	release func(T),
) (T, string, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, "", errNoCandidates
	}

	var lastErr error
	for _, baseURL := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		scope := newAttemptScope(ctx, timeout)
		result, err := try(scope, baseURL)
		if err == nil && accept != nil {
			if rerr := accept(result); rerr != nil {
				if release != nil {
					release(result)
				}
				err = rerr
			}
		}
		if err == nil {
			return result, baseURL, nil
		}

		if scope.expired.Load() {
			err = fmt.Errorf("no response within %s: %w", timeout, err)
		}
		scope.Close()

		slog.Debug("candidate_failed", "base_url", baseURL, "error", err)
		lastErr = err
	}

	return zero, "", lastErr
}
