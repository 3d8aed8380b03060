package config

import "time"

// RateLimitConfig bounds how often one customer may ask for a table on
// one day.  Each (customer, day) pair owns a bucket of Burst requests
// that regains one request every Refill.
type RateLimitConfig struct {
    Enabled bool
    Burst   int
    Refill  time.Duration
    Prefix  string
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Burst:   envInt("RATE_LIMIT_BURST", 5),
        Refill:  envDur("RATE_LIMIT_REFILL", 30*time.Second),
        Prefix:  envStr("RATE_LIMIT_PREFIX", "rl:booking"),
    }
    if cfg.Burst < 1 {
        cfg.Burst = 1
    }
    if cfg.Refill <= 0 {
        cfg.Refill = time.Second
    }
    return cfg
}
