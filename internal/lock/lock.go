// Package lock serializes work on named resources.  The reservation
// writer uses it to hold a (day, area) key across the availability
// re-check and the insert, so two requests for the same slot cannot both
// pass the check.  Memory works inside one process; Redis coordinates
// several instances sharing a Redis server.
package lock

import (
    "context"
    "errors"
    "sort"
)

// ErrNotAcquired is returned when a lock could not be taken before the
// wait budget or the context ran out.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires every key or none.  The returned function releases
// all of them and is safe to call more than once.
type Locker interface {
    Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// normalize sorts and de-duplicates keys so that every caller acquires
// them in the same order.
func normalize(keys []string) []string {
    out := make([]string, 0, len(keys))
    seen := make(map[string]struct{}, len(keys))
    for _, k := range keys {
        if _, ok := seen[k]; ok {
            continue
        }
        seen[k] = struct{}{}
        out = append(out, k)
    }
    sort.Strings(out)
    return out
}
