// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea chat screen.
//
// The screen shows one conversation in a viewport above a textarea, with a
// status bar fed by the availability monitor. Ctrl+O and Ctrl+K swap the
// viewport for the conversation and model pickers.
//
// A generation runs as a tea.Cmd calling Service.Send. Content events are
// written to a StreamingBuffer from that goroutine and drained on a 30fps
// tick, so the viewport redraws at a bounded rate however fast tokens
// arrive. The final Outcome comes back as a GenerationDoneMsg; the stored
// conversation is then reloaded, since the service is what persists both
// the prompt and the reply.
package chat
