package service

import (
    "errors"
    "fmt"
)

// ErrNoAvailability is returned when no area can seat the party in the
// requested window.  Retrying with the same parameters will not help.
var ErrNoAvailability = errors.New("no availability for the requested date and time")

// ErrCapacityExceeded is returned when the party is larger than what
// the three largest tables of any area can seat.  It is a kind of
// ErrNoAvailability and is reported to clients the same way.
var ErrCapacityExceeded = fmt.Errorf("%w: party exceeds the largest table combination", ErrNoAvailability)

// ErrInvalidTimeWindow is returned when a same-day request starts less
// than the minimum lead time from now.
var ErrInvalidTimeWindow = errors.New("same-day reservations need at least 15 minutes of notice")

// ErrConcurrencyConflict is returned when a concurrent booking took the
// chosen tables between the availability check and the write.  The
// writer retries internally and only surfaces it once the attempts are
// spent.
var ErrConcurrencyConflict = errors.New("reservation conflicted with a concurrent booking")

// ErrInvalidPartySize is returned for a party of zero or fewer people.
var ErrInvalidPartySize = errors.New("party size must be positive")
