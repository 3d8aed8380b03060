package lock

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token,
// so a lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisClient is the part of *redis.Client the locker uses.
type RedisClient interface {
    redis.Scripter
    SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis is a Locker backed by SET NX PX.  Every key gets a random token
// and an expiry so a crashed holder cannot block the key forever.
type Redis struct {
    client RedisClient
    ttl    time.Duration // expiry of each key
    wait   time.Duration // how long Lock keeps retrying
    retry  time.Duration // pause between attempts
}

// NewRedis builds a Redis locker.  Non-positive durations fall back to
// 10s ttl, 3s wait and 25ms retry.
func NewRedis(client RedisClient, ttl, wait time.Duration) *Redis {
    if ttl <= 0 {
        ttl = 10 * time.Second
    }
    if wait <= 0 {
        wait = 3 * time.Second
    }
    return &Redis{client: client, ttl: ttl, wait: wait, retry: 25 * time.Millisecond}
}

type heldKey struct {
    key   string
    token string
}

// Lock acquires keys in sorted order.  It gives up with ErrNotAcquired
// once the wait budget is spent, releasing anything already taken.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
    keys = normalize(keys)
    deadline := time.Now().Add(r.wait)
    held := make([]heldKey, 0, len(keys))
    release := func() {
        // release with a fresh context: the caller's may already be cancelled
        rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        for i := len(held) - 1; i >= 0; i-- {
            _ = releaseScript.Run(rctx, r.client, []string{held[i].key}, held[i].token).Err()
        }
        held = held[:0]
    }
    for _, k := range keys {
        token := uuid.NewString()
        if err := r.acquire(ctx, k, token, deadline); err != nil {
            release()
            return nil, err
        }
        held = append(held, heldKey{key: k, token: token})
    }
    var once sync.Once
    return func() { once.Do(release) }, nil
}

func (r *Redis) acquire(ctx context.Context, key, token string, deadline time.Time) error {
    for {
        ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
        if err != nil {
            return fmt.Errorf("lock %s: %w", key, err)
        }
        if ok {
            return nil
        }
        if time.Now().After(deadline) {
            return fmt.Errorf("%w: %s", ErrNotAcquired, key)
        }
        select {
        case <-ctx.Done():
            return fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
        case <-time.After(r.retry):
        }
    }
}
