package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/lock"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/queue"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// LockPrefix namespaces the per-day, per-area write locks.
const LockPrefix = "reservation:lock"

// ReservationStore is the write side of reservations plus the fresh,
// uncached day read used to re-validate under the lock.
type ReservationStore interface {
    FetchReservationsForDay(ctx context.Context, day time.Time) ([]model.ReservationSummary, error)
    CreateWithTables(ctx context.Context, res *model.ReservationRequest) error
}

// DayCache is the day aggregate cache the writer keeps coherent.
type DayCache interface {
    DayReader
    Refresh(ctx context.Context, day time.Time) (model.DayAggregate, error)
    Invalidate(ctx context.Context, day time.Time) error
}

// EventPublisher announces committed reservations.
type EventPublisher interface {
    PublishReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error
}

// Options tunes the writer.
type Options struct {
    MaxAttempts   int           // attempts on concurrency conflicts, default 3
    MaintenanceTO time.Duration // budget for cache refresh and publish after commit, default 5s
}

// CreateInput is a validated reservation request.
type CreateInput struct {
    Day         time.Time
    Start       model.Clock
    PartySize   int
    CustomerRef string
}

// ReservationService creates reservations and serves the per-day view.
// Writes for the same day and area are serialized by the locker, the
// chosen tables are re-validated against the database under the lock,
// and the day cache is refreshed before the lock is released so any read
// after a successful create sees it.
type ReservationService struct {
    matcher   *Matcher
    store     ReservationStore
    cache     DayCache
    locker    lock.Locker
    publisher EventPublisher
    opts      Options
    log       *zap.Logger
}

// NewReservationService wires the writer.  A nil publisher disables
// events.
func NewReservationService(matcher *Matcher, store ReservationStore, cache DayCache, locker lock.Locker, publisher EventPublisher, opts Options, log *zap.Logger) *ReservationService {
    if opts.MaxAttempts < 1 {
        opts.MaxAttempts = 3
    }
    if opts.MaintenanceTO <= 0 {
        opts.MaintenanceTO = 5 * time.Second
    }
    if publisher == nil {
        publisher = queue.NopPublisher{}
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &ReservationService{
        matcher:   matcher,
        store:     store,
        cache:     cache,
        locker:    locker,
        publisher: publisher,
        opts:      opts,
        log:       log.Named("reservations"),
    }
}

// Location returns the restaurant time zone.
func (s *ReservationService) Location() *time.Location { return s.matcher.Location() }

// ReservationsForDay returns the day's reservations grouped by area.
func (s *ReservationService) ReservationsForDay(ctx context.Context, day time.Time) (model.DayAggregate, error) {
    return s.cache.GetByDay(ctx, s.matcher.Day(day))
}

// Create seats the party and persists the reservation.  It returns
// ErrNoAvailability (or ErrCapacityExceeded) when nothing fits,
// ErrInvalidTimeWindow inside the same-day lead time, and
// ErrConcurrencyConflict when concurrent bookings won every attempt.
func (s *ReservationService) Create(ctx context.Context, in CreateInput) (*model.ReservationRequest, error) {
    if in.PartySize <= 0 {
        return nil, ErrInvalidPartySize
    }
    in.Day = s.matcher.Day(in.Day)

    var lastErr error
    for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
        res, err := s.attempt(ctx, in)
        if err == nil {
            s.publish(ctx, res)
            return res, nil
        }
        if !errors.Is(err, ErrConcurrencyConflict) {
            return nil, err
        }
        lastErr = err
        s.log.Info("reservation attempt conflicted",
            zap.Int("attempt", attempt),
            zap.String("day", in.Day.Format(model.DateLayout)),
            zap.Error(err))
        if ctx.Err() != nil {
            return nil, ctx.Err()
        }
        for _, d := range AffectedDays(in.Day, in.Start) {
            s.refresh(ctx, d)
        }
    }
    return nil, fmt.Errorf("gave up after %d attempts: %w", s.opts.MaxAttempts, lastErr)
}

func (s *ReservationService) attempt(ctx context.Context, in CreateInput) (*model.ReservationRequest, error) {
    out, err := s.matcher.Evaluate(ctx, in.Day, in.Start, in.PartySize)
    if err != nil {
        return nil, err
    }
    if out.Seating == nil {
        if out.CapacityExceeded {
            return nil, ErrCapacityExceeded
        }
        return nil, ErrNoAvailability
    }
    seating := out.Seating

    unlock, err := s.locker.Lock(ctx, LockKeys(in.Day, seating.Area, in.Start)...)
    if err != nil {
        if errors.Is(err, lock.ErrNotAcquired) {
            return nil, fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
        }
        return nil, fmt.Errorf("acquire lock: %w", err)
    }
    defer unlock()

    res := &model.ReservationRequest{
        CustomerRef: in.CustomerRef,
        Area:        seating.Area,
        PartySize:   in.PartySize,
        Date:        in.Day,
        StartTime:   in.Start,
        EndTime:     in.Start.Add(SeatingDuration),
        Tables:      seating.Tables,
    }
    if err := s.verifyStillFree(ctx, res, seating.Numbers()); err != nil {
        return nil, err
    }
    if err := s.store.CreateWithTables(ctx, res); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return nil, fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
        }
        return nil, fmt.Errorf("persist reservation: %w", err)
    }
    s.refresh(ctx, in.Day)

    s.log.Info("reservation created",
        zap.Uint64("id", res.ID),
        zap.String("area", res.Area),
        zap.Ints("tables", seating.Numbers()),
        zap.String("day", res.ReservationDate()),
        zap.Stringer("start", res.StartTime))
    return res, nil
}

// verifyStillFree re-reads the affected days from the store, bypassing
// the cache, and fails with ErrConcurrencyConflict if any chosen table is
// now held by an overlapping reservation.
func (s *ReservationService) verifyStillFree(ctx context.Context, res *model.ReservationRequest, numbers []int) error {
    reqStart := res.StartTime.On(res.Date)
    reqEnd := res.EndTime.On(res.Date)

    booked := make([]dayBookings, 0, 3)
    for _, d := range AffectedDays(res.Date, res.StartTime) {
        rows, err := s.store.FetchReservationsForDay(ctx, d)
        if err != nil {
            return fmt.Errorf("re-validate %s: %w", d.Format(model.DateLayout), err)
        }
        booked = append(booked, dayBookings{day: d, agg: model.GroupByArea(rows)})
    }

    held := map[int]struct{}{}
    for _, n := range occupiedTables(booked, res.Area, reqStart, reqEnd) {
        held[n] = struct{}{}
    }
    for _, n := range numbers {
        if _, ok := held[n]; ok {
            return fmt.Errorf("%w: table %d in %s was taken", ErrConcurrencyConflict, n, res.Area)
        }
    }
    return nil
}

// refresh rebuilds the day aggregate after a commit.  The commit must
// not be undone by a cancelled request, so the work runs detached from
// ctx's cancellation.  When the refresh fails the entry is dropped so the
// next read recomputes it.
func (s *ReservationService) refresh(ctx context.Context, day time.Time) {
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.MaintenanceTO)
    defer cancel()

    if _, err := s.cache.Refresh(ctx, day); err != nil {
        s.log.Warn("day cache refresh failed, invalidating", zap.Error(err))
        if err := s.cache.Invalidate(ctx, day); err != nil {
            s.log.Error("day cache invalidate failed", zap.Error(err), zap.String("day", day.Format(model.DateLayout)))
        }
    }
}

func (s *ReservationService) publish(ctx context.Context, res *model.ReservationRequest) {
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.MaintenanceTO)
    defer cancel()

    ev := queue.ReservationCreatedEvent{
        EventID:       uuid.NewString(),
        ReservationID: res.ID,
        CustomerRef:   res.CustomerRef,
        Area:          res.Area,
        PartySize:     res.PartySize,
        Date:          res.ReservationDate(),
        StartTime:     res.StartTime.String(),
        EndTime:       res.EndTime.String(),
        TableNumbers:  Seating{Tables: res.Tables}.Numbers(),
        TotalSeats:    model.TotalSeats(res.Tables),
        CreatedAt:     res.CreatedAt.UTC().Format(time.RFC3339),
    }
    if err := s.publisher.PublishReservationCreated(ctx, ev); err != nil {
        s.log.Warn("reservation event not published", zap.Error(err), zap.Uint64("id", res.ID))
    }
}

// LockKeys returns the lock keys a write for area on day must hold: one
// per affected calendar day.  Two writes that could book the same table
// at overlapping times always share at least one key.
func LockKeys(day time.Time, area string, start model.Clock) []string {
    days := AffectedDays(day, start)
    keys := make([]string, 0, len(days))
    for _, d := range days {
        keys = append(keys, LockPrefix+":"+d.Format(model.DateLayout)+":"+area)
    }
    return keys
}
