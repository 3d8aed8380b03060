// Package service implements the reservation use cases: finding a seating
// for a party and committing it without double-booking any table.
package service

import (
    "context"
    "fmt"
    "sort"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

const (
    // SeatingDuration is the fixed length of every reservation.
    SeatingDuration = 2 * time.Hour
    // MinLeadTime is the notice a same-day reservation needs.
    MinLeadTime = 15 * time.Minute
    // MaxTablesPerReservation caps how many tables one party may span.
    MaxTablesPerReservation = 3

    day24 = 24 * time.Hour
)

// InventoryStore is the read side of the table inventory.
type InventoryStore interface {
    ListAreas(ctx context.Context) ([]string, error)
    ListTablesByAreaAndSeatsDesc(ctx context.Context) ([]model.Table, error)
    FreeTables(ctx context.Context, area string, excluded []int) ([]model.Table, error)
}

// DayReader returns the reservations of one day grouped by area.
type DayReader interface {
    GetByDay(ctx context.Context, day time.Time) (model.DayAggregate, error)
}

// Seating is the area and tables chosen for a party.
type Seating struct {
    Area   string
    Tables []model.Table
}

// TotalSeats sums the seats of the chosen tables.
func (s Seating) TotalSeats() int { return model.TotalSeats(s.Tables) }

// Numbers returns the chosen table numbers in selection order.
func (s Seating) Numbers() []int {
    out := make([]int, 0, len(s.Tables))
    for _, t := range s.Tables {
        out = append(out, t.Number)
    }
    return out
}

// Outcome is the result of an availability check.  Seating is nil when
// nothing fits; CapacityExceeded then tells whether the party was too
// large for every area regardless of bookings.
type Outcome struct {
    Seating          *Seating
    CapacityExceeded bool
}

// Matcher decides whether a party can be seated on a day at a start time
// and, if so, which tables of which area.  Areas are tried in ascending
// order and the first area that fits wins.
type Matcher struct {
    inventory InventoryStore
    days      DayReader
    loc       *time.Location
    now       func() time.Time
    log       *zap.Logger
}

// NewMatcher builds a Matcher.  loc is the restaurant time zone used for
// calendar days and the same-day lead time rule.
func NewMatcher(inventory InventoryStore, days DayReader, loc *time.Location, log *zap.Logger) *Matcher {
    if loc == nil {
        loc = time.UTC
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Matcher{
        inventory: inventory,
        days:      days,
        loc:       loc,
        now:       time.Now,
        log:       log.Named("matcher"),
    }
}

// Location returns the restaurant time zone.
func (m *Matcher) Location() *time.Location { return m.loc }

// Day normalizes t to midnight of its calendar date in the restaurant
// time zone.  Only the year, month and day of t are used.
func (m *Matcher) Day(t time.Time) time.Time {
    y, mo, d := t.Date()
    return time.Date(y, mo, d, 0, 0, 0, 0, m.loc)
}

// FindSeating returns the seating for the party or nil when no area has
// room.  ErrInvalidTimeWindow is returned for same-day requests inside
// the lead time.
func (m *Matcher) FindSeating(ctx context.Context, day time.Time, start model.Clock, partySize int) (*Seating, error) {
    out, err := m.Evaluate(ctx, day, start, partySize)
    if err != nil {
        return nil, err
    }
    return out.Seating, nil
}

// Evaluate runs the availability check.  For each area it excludes
// the tables held by overlapping reservations of the day (and the
// spillover of adjacent days), then takes free tables largest first
// until the party is seated or the table cap is reached.
func (m *Matcher) Evaluate(ctx context.Context, day time.Time, start model.Clock, partySize int) (Outcome, error) {
    if partySize <= 0 {
        return Outcome{}, ErrInvalidPartySize
    }
    day = m.Day(day)
    reqStart := start.On(day)
    reqEnd := reqStart.Add(SeatingDuration)

    if err := m.checkLeadTime(day, reqStart); err != nil {
        return Outcome{}, err
    }

    booked, err := m.bookings(ctx, day, start)
    if err != nil {
        return Outcome{}, err
    }

    areas, err := m.inventory.ListAreas(ctx)
    if err != nil {
        return Outcome{}, fmt.Errorf("list areas: %w", err)
    }
    caps, err := m.topCapacity(ctx)
    if err != nil {
        return Outcome{}, err
    }

    out := Outcome{CapacityExceeded: true}
    for _, area := range areas {
        if caps[area] < partySize {
            continue
        }
        out.CapacityExceeded = false

        occupied := occupiedTables(booked, area, reqStart, reqEnd)
        free, err := m.inventory.FreeTables(ctx, area, occupied)
        if err != nil {
            return Outcome{}, fmt.Errorf("free tables in %s: %w", area, err)
        }
        if picked := SelectTables(free, partySize, MaxTablesPerReservation); picked != nil {
            out.Seating = &Seating{Area: area, Tables: picked}
            m.log.Debug("seating found",
                zap.String("area", area),
                zap.Ints("tables", out.Seating.Numbers()),
                zap.Int("party_size", partySize))
            return out, nil
        }
    }
    return out, nil
}

func (m *Matcher) checkLeadTime(day, reqStart time.Time) error {
    now := m.now().In(m.loc)
    if !m.Day(now).Equal(day) {
        return nil
    }
    if reqStart.Sub(now) < MinLeadTime {
        return ErrInvalidTimeWindow
    }
    return nil
}

// dayBookings is one day's aggregate anchored at that day's midnight.
type dayBookings struct {
    day time.Time
    agg model.DayAggregate
}

// bookings loads every day whose reservations can overlap a seating
// starting at start on day.
func (m *Matcher) bookings(ctx context.Context, day time.Time, start model.Clock) ([]dayBookings, error) {
    days := AffectedDays(day, start)
    out := make([]dayBookings, 0, len(days))
    for _, d := range days {
        agg, err := m.days.GetByDay(ctx, d)
        if err != nil {
            return nil, fmt.Errorf("reservations for %s: %w", d.Format(model.DateLayout), err)
        }
        out = append(out, dayBookings{day: d, agg: agg})
    }
    return out, nil
}

// topCapacity sums, per area, the seats of its three largest tables.
func (m *Matcher) topCapacity(ctx context.Context) (map[string]int, error) {
    tables, err := m.inventory.ListTablesByAreaAndSeatsDesc(ctx)
    if err != nil {
        return nil, fmt.Errorf("list tables: %w", err)
    }
    caps := map[string]int{}
    taken := map[string]int{}
    for _, t := range tables {
        if taken[t.Area] == MaxTablesPerReservation {
            continue
        }
        taken[t.Area]++
        caps[t.Area] += t.Seats
    }
    return caps, nil
}

// AffectedDays lists the calendar days whose reservations can overlap a
// seating starting at start on day, in ascending order.  The previous day
// is included when its late seatings may spill past midnight, the next
// day when this seating does.
func AffectedDays(day time.Time, start model.Clock) []time.Time {
    days := make([]time.Time, 0, 3)
    if start.Duration() < SeatingDuration {
        days = append(days, day.AddDate(0, 0, -1))
    }
    days = append(days, day)
    if start.Duration()+SeatingDuration > day24 {
        days = append(days, day.AddDate(0, 0, 1))
    }
    return days
}

// occupiedTables returns the sorted, de-duplicated numbers of the tables
// in area held by reservations overlapping [reqStart, reqEnd).
func occupiedTables(booked []dayBookings, area string, reqStart, reqEnd time.Time) []int {
    seen := map[int]struct{}{}
    for _, b := range booked {
        for _, r := range b.agg[area] {
            if !Overlaps(reqStart, reqEnd, r.StartTime.On(b.day), r.EndTime.On(b.day)) {
                continue
            }
            for _, n := range r.TableNumbers {
                seen[n] = struct{}{}
            }
        }
    }
    out := make([]int, 0, len(seen))
    for n := range seen {
        out = append(out, n)
    }
    sort.Ints(out)
    return out
}

// SelectTables walks free (largest first) adding tables until their seats
// cover party.  It returns nil when max tables are not enough.
func SelectTables(free []model.Table, party, max int) []model.Table {
    var picked []model.Table
    seats := 0
    for _, t := range free {
        if len(picked) == max {
            break
        }
        picked = append(picked, t)
        seats += t.Seats
        if seats >= party {
            return picked
        }
    }
    return nil
}
