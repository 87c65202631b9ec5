// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// Every call is made against an ordered list of candidate base addresses
// (127.0.0.1, localhost and [::1] on port 11434 by default). The first
// candidate that answers wins; nothing is cached between calls.
//
// # Key Types
//
//   - Client: health checks, model listing and acquisition, chat calls
//   - Resolver: health probe across the candidates (5s per candidate)
//   - Dispatcher: application call with the same fallback (10s per attempt)
//   - Reassembler: newline-delimited JSON stream to StreamEvent conversion
//   - Sink: receiver of content, error and done events
//   - ClientError: categorized failure (unreachable, model, shape, transport, application)
//
// # Usage
//
//	client := ollama.NewClient()
//	ok, err := client.Ensure(ctx, "deepseek")
//	text, err := client.ChatStream(ctx, ollama.ChatRequest{
//	    Model:    "deepseek",
//	    Messages: []ollama.Message{ollama.NewUserMessage("Hello")},
//	}, ollama.SinkFunc(func(ev ollama.StreamEvent) {
//	    fmt.Print(ev.Content)
//	}))
package ollama
