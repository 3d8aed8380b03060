package config

import "time"

// DayCacheConfig defines settings for the per-day reservation aggregate
// cache.  Store selects "redis" or "memory"; "redis" falls back to the
// in-process store when no Redis client is available.
type DayCacheConfig struct {
    Store    string
    Prefix   string
    ShortTTL time.Duration
}

// LoadDayCacheConfig reads DAY_CACHE_* variables, using defaults when
// they are not set.
func LoadDayCacheConfig() DayCacheConfig {
    return DayCacheConfig{
        Store:    envStr("DAY_CACHE_STORE", "redis"),
        Prefix:   envStr("DAY_CACHE_PREFIX", "reservations:day"),
        ShortTTL: envDur("DAY_CACHE_SHORT_TTL", 60*time.Second),
    }
}
