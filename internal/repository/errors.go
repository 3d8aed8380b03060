// Package repository holds the MySQL-backed stores for the table
// inventory and for reservation requests, plus the sentinel errors they
// share.  Higher layers use these values to tell failure scenarios
// apart; ErrConflict, for example, signals that a write lost a race
// against a concurrent booking of the same tables.
package repository

import "errors"

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as inserting a reservation on a table that
// another transaction booked for an overlapping window.  Callers may
// retry the whole find-and-write sequence.
var ErrConflict = errors.New("conflict")
