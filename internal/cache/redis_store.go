package cache

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis.
// This is suitable for distributed deployments where multiple instances
// need to share the day aggregates
type RedisStore struct {
    client *redis.Client
}

// NewRedisStore wraps an existing client; the caller owns its lifecycle.
func NewRedisStore(client *redis.Client) *RedisStore {
    return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
    b, err := s.client.Get(ctx, key).Bytes()
    if errors.Is(err, redis.Nil) {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, fmt.Errorf("cache get %s: %w", key, err)
    }
    return b, true, nil
}

// GetOrCompute fills a miss with SETNX so a slow reader that computed
// from older data cannot overwrite a value stored by Put meanwhile.
func (s *RedisStore) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
    if b, ok, err := s.Get(ctx, key); err != nil {
        return nil, err
    } else if ok {
        return b, nil
    }
    v, err := compute(ctx)
    if err != nil {
        return nil, err
    }
    set, err := s.client.SetNX(ctx, key, v, ttl).Result()
    if err != nil {
        return nil, fmt.Errorf("cache fill %s: %w", key, err)
    }
    if set {
        return v, nil
    }
    b, ok, err := s.Get(ctx, key)
    if err != nil {
        return nil, err
    }
    if !ok {
        // the winner expired or was invalidated in between
        return v, nil
    }
    return b, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
        return fmt.Errorf("cache put %s: %w", key, err)
    }
    return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, keys ...string) error {
    if len(keys) == 0 {
        return nil
    }
    if err := s.client.Del(ctx, keys...).Err(); err != nil {
        return fmt.Errorf("cache invalidate: %w", err)
    }
    return nil
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
