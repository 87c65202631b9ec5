// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_PicksOnlyHealthyCandidateAtAnyPosition(t *testing.T) {
	healthy := newMockOllama(t)

	for pos := 0; pos < 3; pos++ {
		candidates := []string{
			deadURL(t),
			statusServer(t, http.StatusServiceUnavailable, "warming up").URL,
			deadURL(t),
		}
		candidates[pos] = healthy.URL()

		r := NewResolver(candidates, PathTags, time.Second, nil)
		got, err := r.Resolve(context.Background())

		require.NoError(t, err, "position %d", pos)
		assert.Equal(t, healthy.URL(), got, "position %d", pos)
	}
}

func TestResolve_AllCandidatesFail(t *testing.T) {
	r := NewResolver([]string{
		deadURL(t),
		statusServer(t, http.StatusInternalServerError, "boom").URL,
	}, PathTags, time.Second, nil)

	_, err := r.Resolve(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, IsUnreachable(err))
	assert.False(t, r.Available(context.Background()))
}

func TestResolve_NoCachingBetweenCalls(t *testing.T) {
	healthy := newMockOllama(t)
	r := NewResolver([]string{healthy.URL()}, PathTags, time.Second, nil)

	for i := 0; i < 3; i++ {
		require.True(t, r.Available(context.Background()))
	}
	assert.Equal(t, int32(3), healthy.tagsCalls.Load())
}

func TestResolve_TriesEveryCandidateInOrder(t *testing.T) {
	first := newMockOllama(t)
	second := newMockOllama(t)
	r := NewResolver([]string{first.URL(), second.URL()}, PathTags, time.Second, nil)

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.URL(), got)
	assert.Equal(t, int32(0), second.tagsCalls.Load(), "later candidates are not probed once one succeeds")
}

func TestResolve_SlowCandidateTimesOut(t *testing.T) {
	slow := slowServer(t, 2*time.Second)
	healthy := newMockOllama(t)
	r := NewResolver([]string{slow.URL, healthy.URL()}, PathTags, 100*time.Millisecond, nil)

	start := time.Now()
	got, err := r.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, healthy.URL(), got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolve_EmptyCandidateList(t *testing.T) {
	r := NewResolver(nil, PathTags, time.Second, nil)
	_, err := r.Resolve(context.Background())
	assert.True(t, IsUnreachable(err))
}
