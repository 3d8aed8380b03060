package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strings"
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable or a group of them.
type Config struct {
    Env       string         // application environment (e.g. "dev", "prod")
    Port      string         // HTTP port to listen on
    Location  *time.Location // restaurant time zone used for calendar days
    JWTSecret string         // secret used to verify bearer tokens (optional)

    DB          DBConfig
    Redis       RedisConfig
    DayCache    DayCacheConfig
    Reservation ReservationConfig
    RateLimit   RateLimitConfig
    Queue       QueueConfig
    Log         LogConfig
}

// DBConfig holds the MySQL connection settings.
type DBConfig struct {
    User         string
    Pass         string // empty allowed
    Host         string
    Port         string
    Name         string
    AutoMigrate  bool          // apply the embedded schema at startup
    Seed         bool          // insert the demo table inventory at startup
    MaxOpenConns int
    MaxIdleConns int
    ConnMaxLife  time.Duration
}

// ReservationConfig tunes the reservation writer.
type ReservationConfig struct {
    MaxAttempts int           // attempts on concurrency conflicts
    LockTTL     time.Duration // expiry of a distributed (day, area) lock
    LockWait    time.Duration // how long a writer waits for a busy lock
}

// QueueConfig holds the RabbitMQ settings.  An empty URL disables both
// the publisher and the consumer.
type QueueConfig struct {
    URL             string
    Name            string // queue name, default "reservation.created"
    ConsumerEnabled bool   // run the log consumer inside the server
    LogDir          string // consumer output directory
}

// LogConfig configures the zap logger.
type LogConfig struct {
    Level  string
    Format string
    Output string
}

// Load reads configuration values from environment variables.  Missing
// required variables are collected and reported together.
func Load() (Config, error) {
    var missing []string
    must := func(key string) string {
        v, ok := os.LookupEnv(key)
        if !ok || v == "" {
            missing = append(missing, key)
        }
        return v
    }

    cfg := Config{
        Env:       envStr("APP_ENV", "dev"),
        Port:      envStr("APP_PORT", "8080"),
        JWTSecret: os.Getenv("JWT_SECRET"),
        DB: DBConfig{
            User:         must("DB_USER"),
            Pass:         os.Getenv("DB_PASS"),
            Host:         must("DB_HOST"),
            Port:         envStr("DB_PORT", "3306"),
            Name:         must("DB_NAME"),
            AutoMigrate:  envBool("DB_AUTO_MIGRATE", false),
            Seed:         envBool("DB_SEED", false),
            MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
            MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 25),
            ConnMaxLife:  envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
        },
        Redis:    LoadRedisConfig(),
        DayCache: LoadDayCacheConfig(),
        Reservation: ReservationConfig{
            MaxAttempts: envInt("RESERVATION_MAX_ATTEMPTS", 3),
            LockTTL:     envDur("RESERVATION_LOCK_TTL", 10*time.Second),
            LockWait:    envDur("RESERVATION_LOCK_WAIT", 3*time.Second),
        },
        RateLimit: LoadRateLimitConfig(),
        Queue: QueueConfig{
            URL:             firstEnv("RABBITMQ_URL", "AMQP_URL"),
            Name:            envStr("QUEUE_NAME", "reservation.created"),
            ConsumerEnabled: envBool("QUEUE_CONSUMER_ENABLED", true),
            LogDir:          envStr("QUEUE_LOG_DIR", "logs"),
        },
        Log: LogConfig{
            Level:  envStr("LOG_LEVEL", "info"),
            Format: envStr("LOG_FORMAT", "console"),
            Output: envStr("LOG_OUTPUT", "stdout"),
        },
    }
    if len(missing) > 0 {
        return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
    }

    loc, err := LoadLocation(envStr("APP_TIMEZONE", "GMT-3"))
    if err != nil {
        return Config{}, err
    }
    cfg.Location = loc

    if cfg.Reservation.MaxAttempts < 1 {
        return Config{}, errors.New("RESERVATION_MAX_ATTEMPTS must be at least 1")
    }
    return cfg, nil
}

// LoadLocation resolves an IANA zone name, "UTC", or a fixed offset
// written as "GMT-3" / "UTC+5:30".
func LoadLocation(name string) (*time.Location, error) {
    upper := strings.ToUpper(name)
    for _, prefix := range []string{"GMT", "UTC"} {
        rest, ok := strings.CutPrefix(upper, prefix)
        if !ok || rest == "" {
            continue
        }
        sign := 1
        switch rest[0] {
        case '+':
        case '-':
            sign = -1
        default:
            continue
        }
        hm := strings.SplitN(rest[1:], ":", 2)
        h, err := parseUint(hm[0])
        if err != nil || h > 14 {
            return nil, fmt.Errorf("invalid APP_TIMEZONE %q", name)
        }
        m := 0
        if len(hm) == 2 {
            if m, err = parseUint(hm[1]); err != nil || m > 59 {
                return nil, fmt.Errorf("invalid APP_TIMEZONE %q", name)
            }
        }
        return time.FixedZone(name, sign*(h*3600+m*60)), nil
    }
    loc, err := time.LoadLocation(name)
    if err != nil {
        return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", name, err)
    }
    return loc, nil
}

func firstEnv(keys ...string) string {
    for _, k := range keys {
        if v := os.Getenv(k); v != "" {
            return v
        }
    }
    return ""
}
