package cache

import (
    "context"
    "sync"
    "time"
)

// entry is a stored value with an optional expiration
type entry struct {
    value     []byte
    expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
    return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore implements Store with an in-memory map.
// This is suitable for single-instance deployments and testing
type MemoryStore struct {
    mu      sync.RWMutex
    entries map[string]entry
    now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
    s.mu.RLock()
    e, ok := s.entries[key]
    s.mu.RUnlock()
    if !ok {
        return nil, false, nil
    }
    if e.expired(s.now()) {
        s.mu.Lock()
        // re-check under the write lock, the entry may have been replaced
        if cur, ok := s.entries[key]; ok && cur.expired(s.now()) {
            delete(s.entries, key)
        }
        s.mu.Unlock()
        return nil, false, nil
    }
    return clone(e.value), true, nil
}

func (s *MemoryStore) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
    if v, ok, _ := s.Get(ctx, key); ok {
        return v, nil
    }
    v, err := compute(ctx)
    if err != nil {
        return nil, err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    if cur, ok := s.entries[key]; ok && !cur.expired(s.now()) {
        return clone(cur.value), nil
    }
    s.entries[key] = s.newEntry(v, ttl)
    return clone(v), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.entries[key] = s.newEntry(value, ttl)
    return nil
}

func (s *MemoryStore) Invalidate(ctx context.Context, keys ...string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, k := range keys {
        delete(s.entries, k)
    }
    return nil
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *MemoryStore) Size() int {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return len(s.entries)
}

func (s *MemoryStore) newEntry(v []byte, ttl time.Duration) entry {
    e := entry{value: clone(v)}
    if ttl > 0 {
        e.expiresAt = s.now().Add(ttl)
    }
    return e
}

func clone(b []byte) []byte {
    if b == nil {
        return nil
    }
    out := make([]byte, len(b))
    copy(out, b)
    return out
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
