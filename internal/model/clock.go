package model

import (
    "database/sql/driver"
    "encoding/json"
    "fmt"
    "strconv"
    "strings"
    "time"
)

// Clock is a time of day expressed as an offset from midnight.  Offsets
// of 24h or more are valid and describe the early hours of the next
// day, which is how an end time such as 23:00+2h is stored (25:00:00).
// MySQL TIME columns accept such values, so the offset round-trips
// without wrapping.
type Clock time.Duration

// ParseClock parses "HH:MM" or "HH:MM:SS".  Hours may exceed 23 but
// minutes and seconds must be below 60.
func ParseClock(s string) (Clock, error) {
    parts := strings.Split(strings.TrimSpace(s), ":")
    if len(parts) != 2 && len(parts) != 3 {
        return 0, fmt.Errorf("invalid clock %q", s)
    }
    nums := make([]int, 3)
    for i, p := range parts {
        if p == "" || strings.HasPrefix(p, "-") || strings.HasPrefix(p, "+") {
            return 0, fmt.Errorf("invalid clock %q", s)
        }
        n, err := strconv.Atoi(p)
        if err != nil {
            return 0, fmt.Errorf("invalid clock %q", s)
        }
        nums[i] = n
    }
    if nums[1] > 59 || nums[2] > 59 {
        return 0, fmt.Errorf("invalid clock %q", s)
    }
    d := time.Duration(nums[0])*time.Hour + time.Duration(nums[1])*time.Minute + time.Duration(nums[2])*time.Second
    return Clock(d), nil
}

// MustParseClock is ParseClock for literals; it panics on bad input.
func MustParseClock(s string) Clock {
    c, err := ParseClock(s)
    if err != nil {
        panic(err)
    }
    return c
}

// Duration returns the offset from midnight.
func (c Clock) Duration() time.Duration { return time.Duration(c) }

// Add shifts the clock by d.
func (c Clock) Add(d time.Duration) Clock { return Clock(time.Duration(c) + d) }

// Hour returns the hour component, which may be 24 or more.
func (c Clock) Hour() int { return int(time.Duration(c) / time.Hour) }

// On anchors the clock on the given calendar day in the day's location.
func (c Clock) On(day time.Time) time.Time {
    y, m, d := day.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).Add(time.Duration(c))
}

// String renders HH:MM:SS.
func (c Clock) String() string {
    d := time.Duration(c)
    sign := ""
    if d < 0 {
        sign = "-"
        d = -d
    }
    h := d / time.Hour
    m := (d % time.Hour) / time.Minute
    s := (d % time.Minute) / time.Second
    return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
}

func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Clock) UnmarshalJSON(b []byte) error {
    var s string
    if err := json.Unmarshal(b, &s); err != nil {
        return err
    }
    v, err := ParseClock(s)
    if err != nil {
        return err
    }
    *c = v
    return nil
}

// Scan reads a MySQL TIME value, which the driver hands over as text.
func (c *Clock) Scan(src any) error {
    switch v := src.(type) {
    case []byte:
        return c.scanString(string(v))
    case string:
        return c.scanString(v)
    case time.Time:
        *c = Clock(time.Duration(v.Hour())*time.Hour + time.Duration(v.Minute())*time.Minute + time.Duration(v.Second())*time.Second)
        return nil
    case nil:
        return fmt.Errorf("clock: cannot scan NULL")
    }
    return fmt.Errorf("clock: unsupported scan type %T", src)
}

func (c *Clock) scanString(s string) error {
    // TIME(n) columns may carry a fractional part
    if i := strings.IndexByte(s, '.'); i >= 0 {
        s = s[:i]
    }
    v, err := ParseClock(s)
    if err != nil {
        return err
    }
    *c = v
    return nil
}

// Value stores the clock as HH:MM:SS.
func (c Clock) Value() (driver.Value, error) { return c.String(), nil }
