// Package storage provides shared.KeyValueStore implementations for the
// storefront's client-side state: the cart payload and the session.
package storage

import (
	"context"
	"sync"

	"github.com/sifnet/storefront/internal/domain/shared"
)

// MemoryStore keeps values in process memory. Nothing survives a restart;
// it backs tests and serves as the fallback when durable storage is down.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements shared.KeyValueStore
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, shared.ErrStorageUnavailable
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements shared.KeyValueStore
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return shared.ErrStorageUnavailable
	}
	s.values[key] = value
	return nil
}

// Delete implements shared.KeyValueStore
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return shared.ErrStorageUnavailable
	}
	delete(s.values, key)
	return nil
}

// Close implements shared.KeyValueStore. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored keys (for testing/monitoring)
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

var _ shared.KeyValueStore = (*MemoryStore)(nil)
