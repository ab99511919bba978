// Package kvstore persists per-user JSON documents under fixed keys.
//
// Reads are permissive: a missing or corrupt entry yields the caller's
// default value instead of an error. Writes always replace the whole value.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Fixed document keys.
const (
	KeySavedScholarships      = "savedScholarships"
	KeyScholarshipTracker     = "scholarshipTracker"
	KeyFavoriteColleges       = "favoriteColleges"
	KeyChatConversations      = "chatConversations"
	KeyChatActiveConversation = "chatActiveConversation"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a byte-oriented key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Scoped namespaces key under a user.
func Scoped(userID, key string) string {
	return "compass:" + userID + ":" + key
}

// Load decodes the JSON value stored under key into a T. Missing entries,
// read failures and corrupt JSON all return fallback.
func Load[T any](ctx context.Context, s Store, key string, fallback T) T {
	data, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("kvstore read failed, using default", "key", key, "error", err)
		}
		return fallback
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("kvstore entry is corrupt, using default", "key", key, "error", err)
		return fallback
	}
	return v
}

// Save JSON-encodes v and overwrites the value under key.
func Save[T any](ctx context.Context, s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
