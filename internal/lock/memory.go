package lock

import (
    "context"
    "fmt"
    "sync"
)

// Memory is an in-process Locker.  Each key maps to a one-slot channel
// so waiting can be abandoned when the context is cancelled.  Entries
// are dropped once nobody holds or waits for them.
type Memory struct {
    mu    sync.Mutex
    slots map[string]*slot
}

type slot struct {
    ch   chan struct{}
    refs int
}

// NewMemory returns an empty in-process locker.
func NewMemory() *Memory {
    return &Memory{slots: make(map[string]*slot)}
}

// Lock acquires keys in sorted order, blocking until they are free or
// ctx is done.
func (m *Memory) Lock(ctx context.Context, keys ...string) (func(), error) {
    keys = normalize(keys)
    held := make([]string, 0, len(keys))
    release := func() {
        for i := len(held) - 1; i >= 0; i-- {
            m.release(held[i])
        }
        held = held[:0]
    }
    for _, k := range keys {
        if err := m.acquire(ctx, k); err != nil {
            release()
            return nil, err
        }
        held = append(held, k)
    }
    var once sync.Once
    return func() { once.Do(release) }, nil
}

func (m *Memory) acquire(ctx context.Context, key string) error {
    m.mu.Lock()
    s, ok := m.slots[key]
    if !ok {
        s = &slot{ch: make(chan struct{}, 1)}
        m.slots[key] = s
    }
    s.refs++
    m.mu.Unlock()

    select {
    case s.ch <- struct{}{}:
        return nil
    case <-ctx.Done():
        m.unref(key, s)
        return fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
    }
}

func (m *Memory) release(key string) {
    m.mu.Lock()
    s := m.slots[key]
    m.mu.Unlock()
    if s == nil {
        return
    }
    <-s.ch
    m.unref(key, s)
}

func (m *Memory) unref(key string, s *slot) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s.refs--
    if s.refs == 0 {
        delete(m.slots, key)
    }
}

// Size reports how many keys are currently held or waited on.
func (m *Memory) Size() int {
    m.mu.Lock()
    defer m.mu.Unlock()
    return len(m.slots)
}
