// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for rigchat.
//
// Persistence is a plain key-value store holding two keys: "conversations"
// (the full conversation list) and "modelName" (the selected model). Every
// mutation rewrites the affected key immediately; there is no write-behind
// buffering.
//
// # Key Types
//
//   - KV: get/set store interface
//   - JSONFileKV: single JSON document on disk, written atomically
//   - SQLiteKV: one-table SQLite database (modernc.org/sqlite, no cgo)
//   - MemoryKV: in-process store for tests
//   - History: conversation CRUD, search and model selection over a KV
//
// # Usage
//
//	kv, err := storage.Open(storage.BackendJSON, dir)
//	history := storage.NewHistory(kv)
//	err = history.Save(*model.NewConversation())
//	convs, err := history.List()
package storage
