// Package cache keeps the per-day reservation aggregate close at hand.
// The aggregate itself lives behind a small key/value Store so the same
// code runs against Redis in production and an in-memory map in tests
// or when Redis is unavailable.
package cache

import (
    "context"
    "time"
)

// Store is the key/value contract the day cache relies on.  A ttl of
// zero means the entry never expires.
type Store interface {
    // Get returns the value and whether it was present.
    Get(ctx context.Context, key string) ([]byte, bool, error)
    // GetOrCompute returns the cached value or computes, stores and
    // returns it.  Filling is set-if-absent: when another writer stored
    // the key while compute ran, that value wins and is returned.
    GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error)
    // Put overwrites the key unconditionally.
    Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
    // Invalidate removes the keys; missing keys are ignored.
    Invalidate(ctx context.Context, keys ...string) error
}
