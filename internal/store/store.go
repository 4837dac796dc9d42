// Package store provides the byte-oriented key/value backends behind the
// pre-game model cache.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store is a namespaced key/value cache with per-entry expiry. A zero ttl
// means the entry never expires on its own.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the backend named by kind ("sqlite", "redis", "memory").
func Open(kind, sqlitePath, redisAddr string) (Store, error) {
	switch kind {
	case "", "sqlite":
		return OpenSQLite(sqlitePath)
	case "redis":
		return NewRedisStore(redisAddr)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", kind)
	}
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore keeps entries in process. Used by tests and when no
// persistent cache is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
