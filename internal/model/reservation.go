package model

import (
    "sort"
    "time"
)

// DateLayout is the calendar-day format used for reservation dates,
// cache keys and request payloads.
const DateLayout = "2006-01-02"

// ReservationRequest records a party seated at one or more tables of a
// single area for a fixed two hour window.  It is created once and never
// mutated afterwards.
//
// Fields:
//  ID          – primary key identifier.
//  CustomerRef – opaque reference to the requesting party.
//  Area        – area shared by every assigned table.
//  PartySize   – number of guests.
//  Date        – calendar day of the reservation (midnight, restaurant time).
//  StartTime   – seating start as an offset from midnight.
//  EndTime     – StartTime plus the seating duration.
//  Tables      – tables assigned to the party (1..3).
//  CreatedAt   – creation timestamp.
type ReservationRequest struct {
    ID          uint64    `json:"id"`                     // reservation_requests.id
    CustomerRef string    `json:"customer_ref"`           // reservation_requests.customer_ref
    Area        string    `json:"area"`                   // reservation_requests.area
    PartySize   int       `json:"number_of_people"`       // reservation_requests.party_size
    Date        time.Time `json:"-"`                      // reservation_requests.reservation_date
    StartTime   Clock     `json:"start_time"`             // reservation_requests.start_time
    EndTime     Clock     `json:"end_time"`               // reservation_requests.end_time
    Tables      []Table   `json:"tables"`                 // via reservation_requests_tables
    CreatedAt   time.Time `json:"created_at,omitempty"`   // reservation_requests.created_at
}

// ReservationDate renders Date for JSON payloads.
func (r ReservationRequest) ReservationDate() string { return r.Date.Format(DateLayout) }

// TableIDs returns the ids of the assigned tables in assignment order.
func (r ReservationRequest) TableIDs() []uint64 {
    ids := make([]uint64, 0, len(r.Tables))
    for _, t := range r.Tables {
        ids = append(ids, t.ID)
    }
    return ids
}

// ReservationTableLink joins a reservation to one of its tables.  The
// pair is the identity of the row; links are removed together with
// their reservation.
type ReservationTableLink struct {
    ReservationRequestID uint64 // reservation_requests_tables.reservation_request_id
    TableID              uint64 // reservation_requests_tables.table_id
}

// ReservationSummary is the read projection of a reservation used by the
// day aggregate: the reservation joined with its tables.
type ReservationSummary struct {
    ReservationRequestID uint64 `json:"reservation_request_id"`
    Area                 string `json:"-"`
    PartySize            int    `json:"number_of_people"`
    Date                 string `json:"reservation_date"`
    StartTime            Clock  `json:"start_time"`
    EndTime              Clock  `json:"end_time"`
    TableNumbers         []int  `json:"table_numbers"`
    TotalSeats           int    `json:"total_seats"`
}

// DayAggregate maps an area label to the reservations of one day in that
// area.  It is a cache value derived from the reservation tables and can
// be rebuilt at any time.
type DayAggregate map[string][]ReservationSummary

// GroupByArea builds a DayAggregate preserving the order of rows within
// each area.
func GroupByArea(rows []ReservationSummary) DayAggregate {
    agg := make(DayAggregate)
    for _, r := range rows {
        if r.TableNumbers == nil {
            r.TableNumbers = []int{}
        }
        agg[r.Area] = append(agg[r.Area], r)
    }
    return agg
}

// Areas lists the areas present in the aggregate in ascending order.
func (a DayAggregate) Areas() []string {
    out := make([]string, 0, len(a))
    for k := range a {
        out = append(out, k)
    }
    sort.Strings(out)
    return out
}

// WithAreas restores the Area field, which is not part of the JSON form,
// from the map keys.  Call it after decoding an aggregate.
func (a DayAggregate) WithAreas() DayAggregate {
    for area, rows := range a {
        for i := range rows {
            rows[i].Area = area
            if rows[i].TableNumbers == nil {
                rows[i].TableNumbers = []int{}
            }
        }
    }
    return a
}
