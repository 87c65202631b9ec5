// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates a single chat completion against Ollama.
//
// A generation runs the pre-flight checks (server reachable, model
// installed, pulling it once if needed), assembles the message list from
// history plus the new prompt, and dispatches the call in single-shot or
// streaming mode. Every failure is turned into an Outcome carrying a short
// error and a longer remediation text meant for direct display; no raw
// error crosses this package's API.
//
// # Key Types
//
//   - Orchestrator: runs generations
//   - Request: model, prompt, history and per-call flags
//   - Outcome: success/response or error/remediation
//   - State: lifecycle of one generation, logged on every transition
package chat
