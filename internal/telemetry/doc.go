// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides Prometheus instrumentation for rigchat.
//
// Counters and histograms are registered on the default registry at package
// init through promauto, so importing the package is enough to expose them on
// the bridge's /metrics endpoint.
//
// # Key Metrics
//
//   - rigchat_dispatch_attempts_total: one increment per candidate address tried
//   - rigchat_generations_total: completed generations by mode and result
//   - rigchat_stream_events_total: reassembled stream events by kind
//   - rigchat_model_pulls_total: model acquisitions by result
//   - rigchat_generation_duration_seconds: wall time of a generation
//
// # Privacy
//
// Metrics are local-only. Prompt and response text is never recorded.
package telemetry
