// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
)

// Store keys.
const (
	KeyConversations = "conversations"
	KeyModelName     = "modelName"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// StoreName is the base file name of the on-disk store.
const StoreName = "chat-history"

// KV is a minimal get/set store. Values are JSON-encoded.
type KV interface {
	// Get decodes the value stored under key into dst. It reports false
	// when the key has never been set.
	Get(key string, dst any) (bool, error)

	// Set stores value under key, replacing any previous value. The write
	// is durable when Set returns.
	Set(key string, value any) error

	Close() error
}

// Open creates the KV for backend under dir.
func Open(backend, dir string) (KV, error) {
	switch backend {
	case "", BackendJSON:
		return OpenJSONFile(filepath.Join(dir, StoreName+".json"))
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, StoreName+".db"))
	default:
		return nil, &StoreError{Op: "open", Message: fmt.Sprintf("unknown storage backend %q", backend)}
	}
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryKV keeps values in memory. Values round-trip through JSON so
// callers see the same copy semantics as the disk backends.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string, dst any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, &StoreError{Op: "get", Key: key, Message: "failed to decode value", Cause: err}
	}
	return true, nil
}

func (m *MemoryKV) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return &StoreError{Op: "set", Key: key, Message: "failed to encode value", Cause: err}
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Close() error { return nil }
