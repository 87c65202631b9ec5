// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// JSON FILE STORE
// =============================================================================

// JSONFileKV keeps every key in one JSON object on disk. The whole document
// is rewritten atomically on every Set.
type JSONFileKV struct {
	path string

	mu   sync.Mutex
	data map[string]json.RawMessage
}

// OpenJSONFile loads the store at path, starting empty if it does not exist.
func OpenJSONFile(path string) (*JSONFileKV, error) {
	kv := &JSONFileKV{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("store_created", "path", path)
		return kv, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "open", Message: "failed to read store", Cause: err}
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &kv.data); err != nil {
			return nil, &StoreError{Op: "open", Message: "store file is corrupt: " + path, Cause: err}
		}
	}
	slog.Debug("store_loaded", "path", path, "keys", len(kv.data))
	return kv, nil
}

// Path returns the file backing the store.
func (s *JSONFileKV) Path() string {
	return s.path
}

func (s *JSONFileKV) Get(key string, dst any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, &StoreError{Op: "get", Key: key, Message: "failed to decode value", Cause: err}
	}
	return true, nil
}

func (s *JSONFileKV) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return &StoreError{Op: "set", Key: key, Message: "failed to encode value", Cause: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = raw
	doc, err := json.MarshalIndent(s.data, "", "  ")
	if err == nil {
		// RELIABILITY: Atomic write with fsync prevents data loss on crash
		err = util.AtomicWriteFile(s.path, doc, 0o600)
	}
	if err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return &StoreError{Op: "set", Key: key, Message: "failed to write store", Cause: err}
	}
	return nil
}

func (s *JSONFileKV) Close() error { return nil }
