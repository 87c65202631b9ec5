// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// backends returns one fresh store per backend.
func backends(t *testing.T) map[string]KV {
	t.Helper()
	jsonKV, err := OpenJSONFile(filepath.Join(t.TempDir(), "chat-history.json"))
	require.NoError(t, err)
	sqliteKV, err := OpenSQLite(filepath.Join(t.TempDir(), "chat-history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteKV.Close() })

	return map[string]KV{
		"memory": NewMemoryKV(),
		"json":   jsonKV,
		"sqlite": sqliteKV,
	}
}

func TestKV_GetMissingKey(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var v sample
			ok, err := kv.Get("absent", &v)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestKV_SetOverwrites(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Set("k", sample{Name: "a", Count: 1}))
			require.NoError(t, kv.Set("k", sample{Name: "b", Count: 2}))

			var v sample
			ok, err := kv.Get("k", &v)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, sample{Name: "b", Count: 2}, v)
		})
	}
}

func TestJSONFileKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chat-history.json")
	kv, err := OpenJSONFile(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(KeyModelName, "llama3"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := OpenJSONFile(path)
	require.NoError(t, err)
	var name string
	ok, err := reopened.Get(KeyModelName, &name)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "llama3", name)
}

func TestJSONFileKV_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat-history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := OpenJSONFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestSQLiteKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat-history.db")
	kv, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set("k", []int{1, 2, 3}))
	require.NoError(t, kv.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	var got []int
	ok, err := reopened.Get("k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	kv, err := Open(BackendJSON, dir)
	require.NoError(t, err)
	assert.IsType(t, &JSONFileKV{}, kv)

	kv, err = Open(BackendSQLite, dir)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteKV{}, kv)
	kv.Close()

	_, err = Open("redis", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestStoreError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StoreError{Op: "set", Key: "conversations", Message: "write failed", Cause: cause}

	assert.Equal(t, "set: write failed (key conversations): disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, ErrConversationNotFound))
	assert.True(t, errors.Is(&StoreError{Op: "get", Message: "conversation not found"}, ErrConversationNotFound))
}
