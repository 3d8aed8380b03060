package cache

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap/zaptest"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

type fakeFetcher struct {
    mu    sync.Mutex
    rows  map[string][]model.ReservationSummary
    calls int
    err   error
}

func (f *fakeFetcher) FetchReservationsForDay(ctx context.Context, day time.Time) ([]model.ReservationSummary, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.calls++
    if f.err != nil {
        return nil, f.err
    }
    rows := f.rows[day.Format(model.DateLayout)]
    out := make([]model.ReservationSummary, len(rows))
    copy(out, rows)
    return out, nil
}

func (f *fakeFetcher) add(day string, s model.ReservationSummary) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.rows == nil {
        f.rows = map[string][]model.ReservationSummary{}
    }
    f.rows[day] = append(f.rows[day], s)
}

var testDay = time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC)

func summary(id uint64, area string, tables ...int) model.ReservationSummary {
    return model.ReservationSummary{
        ReservationRequestID: id,
        Area:                 area,
        PartySize:            2,
        Date:                 "2025-12-22",
        StartTime:            model.MustParseClock("18:00"),
        EndTime:              model.MustParseClock("20:00"),
        TableNumbers:         tables,
        TotalSeats:           2 * len(tables),
    }
}

func TestDayCache_GetByDayCachesForever(t *testing.T) {
    ctx := context.Background()
    store := NewMemoryStore()
    f := &fakeFetcher{}
    f.add("2025-12-22", summary(1, "B", 3))
    f.add("2025-12-22", summary(2, "A", 1))
    c := NewDayCache(store, f, Options{}, zaptest.NewLogger(t))

    first, err := c.GetByDay(ctx, testDay)
    require.NoError(t, err)
    assert.Equal(t, []string{"A", "B"}, first.Areas())
    assert.Equal(t, "A", first["A"][0].Area)

    // new rows are not visible until a refresh
    f.add("2025-12-22", summary(3, "A", 2))
    second, err := c.GetByDay(ctx, testDay)
    require.NoError(t, err)
    assert.Equal(t, first, second)
    assert.Equal(t, 1, f.calls)

    _, ok, _ := store.Get(ctx, "reservations:day:2025-12-22")
    assert.True(t, ok)
    _, ok, _ = store.Get(ctx, "reservations:day:2025-12-22:short")
    assert.True(t, ok)
}

func TestDayCache_RefreshIsReadAfterWrite(t *testing.T) {
    ctx := context.Background()
    f := &fakeFetcher{}
    c := NewDayCache(NewMemoryStore(), f, Options{Prefix: "test"}, zaptest.NewLogger(t))

    empty, err := c.GetByDay(ctx, testDay)
    require.NoError(t, err)
    assert.Empty(t, empty)

    f.add("2025-12-22", summary(9, "C", 4))
    refreshed, err := c.Refresh(ctx, testDay)
    require.NoError(t, err)
    require.Len(t, refreshed["C"], 1)

    got, err := c.GetByDay(ctx, testDay)
    require.NoError(t, err)
    assert.Equal(t, refreshed, got)
    assert.Equal(t, "test:2025-12-22", c.Key(testDay))
}

func TestDayCache_Invalidate(t *testing.T) {
    ctx := context.Background()
    store := NewMemoryStore()
    f := &fakeFetcher{}
    c := NewDayCache(store, f, Options{}, nil)

    _, err := c.GetByDay(ctx, testDay)
    require.NoError(t, err)
    require.NoError(t, c.Invalidate(ctx, testDay))
    assert.Equal(t, 0, store.Size())

    _, err = c.GetByDay(ctx, testDay)
    require.NoError(t, err)
    assert.Equal(t, 2, f.calls)
}

func TestDayCache_FetchErrorPropagates(t *testing.T) {
    boom := errors.New("db down")
    c := NewDayCache(NewMemoryStore(), &fakeFetcher{err: boom}, Options{}, nil)
    _, err := c.GetByDay(context.Background(), testDay)
    assert.ErrorIs(t, err, boom)
}

func TestDayCache_EmptyTableNumbersDecodeEmpty(t *testing.T) {
    f := &fakeFetcher{}
    f.add("2025-12-22", summary(1, "A"))
    c := NewDayCache(NewMemoryStore(), f, Options{}, nil)

    agg, err := c.GetByDay(context.Background(), testDay)
    require.NoError(t, err)
    assert.NotNil(t, agg["A"][0].TableNumbers)
    assert.Empty(t, agg["A"][0].TableNumbers)
}

func TestDayCache_ShortEntryExpiresPrimaryStays(t *testing.T) {
    ctx := context.Background()
    clock := time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC)
    store := NewMemoryStore()
    store.now = func() time.Time { return clock }
    f := &fakeFetcher{}
    f.add("2025-12-22", summary(1, "A", 1))
    c := NewDayCache(store, f, Options{}, nil)

    _, err := c.GetByDay(ctx, testDay)
    require.NoError(t, err)

    clock = clock.Add(59 * time.Second)
    _, ok, err := store.Get(ctx, "reservations:day:2025-12-22:short")
    require.NoError(t, err)
    assert.True(t, ok)

    clock = clock.Add(2 * time.Second)
    _, ok, err = store.Get(ctx, "reservations:day:2025-12-22:short")
    require.NoError(t, err)
    assert.False(t, ok, "short copy gone after ShortTTL")
    _, ok, err = store.Get(ctx, "reservations:day:2025-12-22")
    require.NoError(t, err)
    assert.True(t, ok, "primary entry never expires")

    agg, err := c.GetByDay(ctx, testDay)
    require.NoError(t, err)
    assert.Len(t, agg["A"], 1)
    assert.Equal(t, 1, f.calls)
}
