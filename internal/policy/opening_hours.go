// Package policy holds restaurant business rules that sit outside the
// availability matcher.  They are pure functions of their inputs so the
// matcher and its tests never depend on wall-clock rules.
package policy

import (
    "fmt"
    "time"
)

// OpeningHours answers whether a reservation may start at the given
// hour (0-23) on the given weekday.
type OpeningHours interface {
    IsOpen(weekday time.Weekday, hour int) bool
}

// Window is a run of opening hours on one weekday: [From, To).  To may
// be 24 for midnight.
type Window struct {
    From int
    To   int
}

// WeeklyHours is an OpeningHours table keyed by weekday.  A weekday with
// no windows is closed.
type WeeklyHours map[time.Weekday][]Window

// DefaultHours is the restaurant's schedule: Monday to Friday 10:00-24:00,
// Saturday 22:00-02:00 (the early hours belong to Saturday's date) and
// Sunday 12:00-16:00.
var DefaultHours = WeeklyHours{
    time.Sunday:    {{From: 12, To: 16}},
    time.Monday:    {{From: 10, To: 24}},
    time.Tuesday:   {{From: 10, To: 24}},
    time.Wednesday: {{From: 10, To: 24}},
    time.Thursday:  {{From: 10, To: 24}},
    time.Friday:    {{From: 10, To: 24}},
    time.Saturday:  {{From: 22, To: 24}, {From: 0, To: 2}},
}

// IsOpen reports whether hour falls in one of the weekday's windows.
func (w WeeklyHours) IsOpen(weekday time.Weekday, hour int) bool {
    for _, win := range w[weekday] {
        if hour >= win.From && hour < win.To {
            return true
        }
    }
    return false
}

// Describe renders the weekday's windows, e.g. "22:00-24:00, 00:00-02:00".
func (w WeeklyHours) Describe(weekday time.Weekday) string {
    wins := w[weekday]
    if len(wins) == 0 {
        return "closed"
    }
    out := ""
    for i, win := range wins {
        if i > 0 {
            out += ", "
        }
        out += fmt.Sprintf("%02d:00-%02d:00", win.From, win.To)
    }
    return out
}
