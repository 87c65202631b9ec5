// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// METRICS
// =============================================================================

var (
	// dispatchAttempts counts requests sent to a single candidate address.
	dispatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rigchat_dispatch_attempts_total",
		Help: "Requests sent to a candidate inference server address, by endpoint and result",
	}, []string{"endpoint", "result"})

	// generations counts finished generations.
	generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rigchat_generations_total",
		Help: "Chat generations by mode (single, stream) and result (success, failure)",
	}, []string{"mode", "result"})

	// generationDuration tracks end-to-end generation latency including pre-flight checks.
	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rigchat_generation_duration_seconds",
		Help:    "Generation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"mode"})

	// streamEvents counts events produced by the stream reassembler.
	streamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rigchat_stream_events_total",
		Help: "Stream events emitted, by kind (content, error, done)",
	}, []string{"kind"})

	// modelPulls counts model acquisitions.
	modelPulls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rigchat_model_pulls_total",
		Help: "Model pull requests by result",
	}, []string{"result"})
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Generation modes.
const (
	ModeSingle = "single"
	ModeStream = "stream"
)

// RecordDispatchAttempt records one try against a candidate address.
func RecordDispatchAttempt(endpoint string, ok bool) {
	dispatchAttempts.WithLabelValues(endpoint, result(ok)).Inc()
}

// RecordGeneration records a finished generation and its duration.
func RecordGeneration(mode string, ok bool, elapsed time.Duration) {
	generations.WithLabelValues(mode, result(ok)).Inc()
	generationDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RecordStreamEvent records an emitted stream event.
func RecordStreamEvent(kind string) {
	streamEvents.WithLabelValues(kind).Inc()
}

// RecordModelPull records a model acquisition attempt.
func RecordModelPull(ok bool) {
	modelPulls.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}
