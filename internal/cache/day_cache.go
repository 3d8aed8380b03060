package cache

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/lock"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Fetcher loads the reservations of one calendar day from the source of
// truth, ordered by area and then by insertion.
type Fetcher interface {
    FetchReservationsForDay(ctx context.Context, day time.Time) ([]model.ReservationSummary, error)
}

// Options tunes key naming and the secondary short-lived copy.
type Options struct {
    Prefix   string        // key prefix, default "reservations:day"
    ShortTTL time.Duration // expiry of the "<key>:short" copy, default 60s
}

// DayCache serves the per-day aggregate of reservations grouped by area.
// The primary entry never expires on its own; the writer refreshes it
// after every committed reservation.  A per-day guard serializes fills
// and refreshes inside the process, and set-if-absent fills keep other
// instances from overwriting a fresher refresh.
type DayCache struct {
    store   Store
    fetcher Fetcher
    opts    Options
    guard   *lock.Memory
    log     *zap.Logger
}

// NewDayCache builds a DayCache over the given store and fetcher.
func NewDayCache(store Store, fetcher Fetcher, opts Options, log *zap.Logger) *DayCache {
    if opts.Prefix == "" {
        opts.Prefix = "reservations:day"
    }
    if opts.ShortTTL <= 0 {
        opts.ShortTTL = 60 * time.Second
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &DayCache{
        store:   store,
        fetcher: fetcher,
        opts:    opts,
        guard:   lock.NewMemory(),
        log:     log.Named("day_cache"),
    }
}

// Key returns the primary cache key for day.
func (c *DayCache) Key(day time.Time) string {
    return c.opts.Prefix + ":" + day.Format(model.DateLayout)
}

func (c *DayCache) shortKey(day time.Time) string { return c.Key(day) + ":short" }

// GetByDay returns the aggregate for day, computing and storing it on
// the first access.
func (c *DayCache) GetByDay(ctx context.Context, day time.Time) (model.DayAggregate, error) {
    key := c.Key(day)
    unlock, err := c.guard.Lock(ctx, key)
    if err != nil {
        return nil, err
    }
    defer unlock()

    b, err := c.store.GetOrCompute(ctx, key, 0, func(ctx context.Context) ([]byte, error) {
        c.log.Debug("day aggregate miss", zap.String("key", key))
        return c.compute(ctx, day)
    })
    if err != nil {
        return nil, err
    }
    return decode(b)
}

// Refresh recomputes the aggregate for day from the fetcher and
// overwrites the cached entries.
func (c *DayCache) Refresh(ctx context.Context, day time.Time) (model.DayAggregate, error) {
    key := c.Key(day)
    unlock, err := c.guard.Lock(ctx, key)
    if err != nil {
        return nil, err
    }
    defer unlock()

    b, err := c.compute(ctx, day)
    if err != nil {
        return nil, err
    }
    if err := c.store.Put(ctx, key, b, 0); err != nil {
        return nil, err
    }
    c.log.Debug("day aggregate refreshed", zap.String("key", key))
    return decode(b)
}

// Invalidate drops both entries for day.
func (c *DayCache) Invalidate(ctx context.Context, day time.Time) error {
    return c.store.Invalidate(ctx, c.Key(day), c.shortKey(day))
}

func (c *DayCache) compute(ctx context.Context, day time.Time) ([]byte, error) {
    rows, err := c.fetcher.FetchReservationsForDay(ctx, day)
    if err != nil {
        return nil, fmt.Errorf("fetch reservations for %s: %w", day.Format(model.DateLayout), err)
    }
    b, err := json.Marshal(model.GroupByArea(rows))
    if err != nil {
        return nil, err
    }
    if err := c.store.Put(ctx, c.shortKey(day), b, c.opts.ShortTTL); err != nil {
        c.log.Warn("short-lived day aggregate not stored", zap.Error(err))
    }
    return b, nil
}

func decode(b []byte) (model.DayAggregate, error) {
    agg := model.DayAggregate{}
    if err := json.Unmarshal(b, &agg); err != nil {
        return nil, fmt.Errorf("decode day aggregate: %w", err)
    }
    return agg.WithAreas(), nil
}
