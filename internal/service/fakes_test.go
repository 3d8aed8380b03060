package service

import (
    "context"
    "fmt"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/queue"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

var loc = time.FixedZone("GMT-3", -3*60*60)

// monday is far in the future relative to fixedNow so the lead time rule
// never applies unless a test asks for it.
var (
    monday   = time.Date(2025, 12, 22, 0, 0, 0, 0, loc)
    fixedNow = time.Date(2025, 12, 20, 9, 0, 0, 0, loc)
)

func clockAt(s string) model.Clock { return model.MustParseClock(s) }

// fakeInventory mirrors the ordering guarantees of the SQL queries.
type fakeInventory struct {
    tables []model.Table
}

func newInventory(tables ...model.Table) *fakeInventory {
    for i := range tables {
        if tables[i].ID == 0 {
            tables[i].ID = uint64(i + 1)
        }
    }
    return &fakeInventory{tables: tables}
}

func table(area string, number, seats int) model.Table {
    return model.Table{Area: area, Number: number, Seats: seats}
}

func (f *fakeInventory) ListAreas(ctx context.Context) ([]string, error) {
    seen := map[string]struct{}{}
    var out []string
    for _, t := range f.tables {
        if _, ok := seen[t.Area]; !ok {
            seen[t.Area] = struct{}{}
            out = append(out, t.Area)
        }
    }
    sort.Strings(out)
    return out, nil
}

func (f *fakeInventory) sorted() []model.Table {
    out := append([]model.Table(nil), f.tables...)
    sort.SliceStable(out, func(i, j int) bool {
        if out[i].Area != out[j].Area {
            return out[i].Area < out[j].Area
        }
        if out[i].Seats != out[j].Seats {
            return out[i].Seats > out[j].Seats
        }
        return out[i].ID < out[j].ID
    })
    return out
}

func (f *fakeInventory) ListTablesByAreaAndSeatsDesc(ctx context.Context) ([]model.Table, error) {
    return f.sorted(), nil
}

func (f *fakeInventory) FreeTables(ctx context.Context, area string, excluded []int) ([]model.Table, error) {
    skip := map[int]bool{}
    for _, n := range excluded {
        skip[n] = true
    }
    var out []model.Table
    for _, t := range f.sorted() {
        if t.Area == area && !skip[t.Number] {
            out = append(out, t)
        }
    }
    return out, nil
}

// fakeDays serves fixed aggregates keyed by date.
type fakeDays map[string]model.DayAggregate

func (f fakeDays) GetByDay(ctx context.Context, day time.Time) (model.DayAggregate, error) {
    if agg, ok := f[day.Format(model.DateLayout)]; ok {
        return agg, nil
    }
    return model.DayAggregate{}, nil
}

func booking(area, start, end string, tables ...int) model.ReservationSummary {
    return model.ReservationSummary{
        Area:         area,
        PartySize:    2,
        StartTime:    clockAt(start),
        EndTime:      clockAt(end),
        TableNumbers: tables,
    }
}

// memStore is an in-memory reservation store.  CreateWithTables applies
// the same same-day conflict check as the SQL repository.
type memStore struct {
    mu      sync.Mutex
    tables  map[uint64]model.Table
    rows    []model.ReservationRequest
    nextID  uint64
    creates int

    // beforeCreate runs once per CreateWithTables call, outside the mutex.
    beforeCreate func(call int)
}

func newMemStore(inv *fakeInventory) *memStore {
    s := &memStore{tables: map[uint64]model.Table{}}
    for _, t := range inv.tables {
        s.tables[t.ID] = t
    }
    return s
}

func (s *memStore) FetchReservationsForDay(ctx context.Context, day time.Time) ([]model.ReservationSummary, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    date := day.Format(model.DateLayout)
    var out []model.ReservationSummary
    for _, r := range s.rows {
        if r.ReservationDate() != date {
            continue
        }
        nums := Seating{Tables: r.Tables}.Numbers()
        sort.Ints(nums)
        out = append(out, model.ReservationSummary{
            ReservationRequestID: r.ID,
            Area:                 r.Area,
            PartySize:            r.PartySize,
            Date:                 date,
            StartTime:            r.StartTime,
            EndTime:              r.EndTime,
            TableNumbers:         nums,
            TotalSeats:           model.TotalSeats(r.Tables),
        })
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].Area < out[j].Area })
    return out, nil
}

func (s *memStore) CreateWithTables(ctx context.Context, res *model.ReservationRequest) error {
    s.mu.Lock()
    s.creates++
    call := s.creates
    hook := s.beforeCreate
    s.mu.Unlock()
    if hook != nil {
        hook(call)
    }

    s.mu.Lock()
    defer s.mu.Unlock()
    for _, r := range s.rows {
        if r.ReservationDate() != res.ReservationDate() {
            continue
        }
        if !(r.StartTime < res.EndTime && res.StartTime < r.EndTime) {
            continue
        }
        for _, a := range r.Tables {
            for _, b := range res.Tables {
                if a.ID == b.ID {
                    return fmt.Errorf("table %d already booked: %w", a.Number, repository.ErrConflict)
                }
            }
        }
    }
    s.nextID++
    res.ID = s.nextID
    res.CreatedAt = time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC)
    s.rows = append(s.rows, *res)
    return nil
}

// insert stores a reservation directly, as a concurrent writer would.
func (s *memStore) insert(res model.ReservationRequest) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextID++
    res.ID = s.nextID
    s.rows = append(s.rows, res)
}

func (s *memStore) all() []model.ReservationRequest {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]model.ReservationRequest(nil), s.rows...)
}

type recordingPublisher struct {
    mu     sync.Mutex
    events []queue.ReservationCreatedEvent
    err    error
}

func (p *recordingPublisher) PublishReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return p.err
}
