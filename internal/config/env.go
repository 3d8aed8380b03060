package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Lookup helpers: an unset or unparsable variable yields the default.

func envStr(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func envBool(key string, def bool) bool {
    switch strings.ToLower(os.Getenv(key)) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func envInt(key string, def int) int {
    if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
        return n
    }
    return def
}

func envDur(key string, def time.Duration) time.Duration {
    if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
        return d
    }
    return def
}

// parseUint parses a non-negative decimal.
func parseUint(s string) (int, error) {
    n, err := strconv.Atoi(s)
    if err != nil || n < 0 {
        return 0, strconv.ErrSyntax
    }
    return n, nil
}
