package middleware

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "math"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/config"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// bookingBucket takes one token from KEYS[1].  Tokens refill
// continuously at one per ARGV[3] ms up to ARGV[2]; the hash expires once
// it would be full again anyway.
// Returns {allowed, tokens left, retry after ms}.
var bookingBucket = redis.NewScript(`
    local now = tonumber(ARGV[1])
    local burst = tonumber(ARGV[2])
    local refill_ms = tonumber(ARGV[3])

    local state = redis.call('HMGET', KEYS[1], 'tokens', 'at')
    local tokens = tonumber(state[1]) or burst
    local at = tonumber(state[2]) or now
    if now > at then
        tokens = math.min(burst, tokens + (now - at) / refill_ms)
        at = now
    end

    local allowed, retry = 0, 0
    if tokens >= 1 then
        tokens = tokens - 1
        allowed = 1
    else
        retry = math.ceil((1 - tokens) * refill_ms)
    end

    redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'at', at)
    redis.call('PEXPIRE', KEYS[1], burst * refill_ms)
    return {allowed, math.floor(tokens), retry}
`)

// maxPeekBody caps how much of a request body is read to find its day.
const maxPeekBody = 64 << 10

// Decision is the outcome of taking a token.
type Decision struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

// BookingLimiter throttles reservation requests per customer and per
// requested day.  Guests are told apart by client IP.
type BookingLimiter struct {
    rdb redis.Scripter
    cfg config.RateLimitConfig
    now func() time.Time
    log *zap.Logger
}

// NewBookingLimiter returns a limiter over rdb.  A nil rdb or a disabled
// config makes Middleware a pass-through.
func NewBookingLimiter(cfg config.RateLimitConfig, rdb redis.Scripter, log *zap.Logger) *BookingLimiter {
    if log == nil {
        log = zap.NewNop()
    }
    return &BookingLimiter{rdb: rdb, cfg: cfg, now: time.Now, log: log.Named("ratelimit")}
}

// Take removes one token from the bucket stored under key.
func (l *BookingLimiter) Take(ctx context.Context, key string) (Decision, error) {
    res, err := bookingBucket.Run(ctx, l.rdb, []string{key},
        l.now().UnixMilli(), l.cfg.Burst, l.cfg.Refill.Milliseconds(),
    ).Int64Slice()
    if err != nil {
        return Decision{}, err
    }
    if len(res) != 3 {
        return Decision{}, fmt.Errorf("unexpected bucket result %v", res)
    }
    return Decision{
        Allowed:    res[0] == 1,
        Remaining:  res[1],
        RetryAfter: time.Duration(res[2]) * time.Millisecond,
    }, nil
}

// Middleware rejects a create request with 429 once its bucket is empty.
// Redis failures let the request through.
func (l *BookingLimiter) Middleware() echo.MiddlewareFunc {
    if !l.cfg.Enabled || l.rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := l.bucketKey(c)
            d, err := l.Take(c.Request().Context(), key)
            if err != nil {
                Logger(c, l.log).Warn("rate limit unavailable, allowing request", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Burst))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
            if d.Allowed {
                return next(c)
            }

            secs := int(math.Ceil(d.RetryAfter.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            Logger(c, l.log).Info("reservation request throttled", zap.String("key", key), zap.Duration("retry_after", d.RetryAfter))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too many reservation requests for this day, try again later",
                "retry_after": secs,
            })
        }
    }
}

// bucketKey is <prefix>:<customer>:<day>.
func (l *BookingLimiter) bucketKey(c echo.Context) string {
    who := CustomerRef(c)
    if who == Guest {
        who = Guest + ":" + c.RealIP()
    }
    return l.cfg.Prefix + ":" + who + ":" + requestedDay(c)
}

type peekedBody struct {
    io.Reader
    io.Closer
}

// requestedDay reads the "day" field of the JSON body and puts the body
// back for the handler.  Anything that is not a valid date counts as
// "invalid", which shares one bucket per customer.
func requestedDay(c echo.Context) string {
    req := c.Request()
    if req.Body == nil {
        return "invalid"
    }
    b, err := io.ReadAll(io.LimitReader(req.Body, maxPeekBody))
    req.Body = peekedBody{Reader: io.MultiReader(bytes.NewReader(b), req.Body), Closer: req.Body}
    if err != nil {
        return "invalid"
    }
    var body struct {
        Day string `json:"day"`
    }
    if json.Unmarshal(b, &body) != nil {
        return "invalid"
    }
    if _, err := time.Parse(model.DateLayout, body.Day); err != nil {
        return "invalid"
    }
    return body.Day
}
