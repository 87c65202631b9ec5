// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bridge serves the chat operations over HTTP on the loopback
// interface, for browser and editor front ends.
//
// Routes:
//
//	GET    /api/chats          list conversations (?q= searches)
//	POST   /api/chats          store a conversation (empty body: new chat)
//	PUT    /api/chats/{id}     replace the messages of a conversation
//	DELETE /api/chats/{id}     delete a conversation
//	POST   /api/generate       generate a reply; "stream":true returns NDJSON
//	GET    /api/models         installed models
//	GET    /api/model          selected model
//	PUT    /api/model          select a model
//	GET    /api/status         server reachability and service state
//	GET    /metrics            Prometheus metrics
//	GET    /health             liveness
//
// A streamed generation writes one StreamEvent per line and finishes with a
// line of type "outcome" carrying the final Outcome.
package bridge
