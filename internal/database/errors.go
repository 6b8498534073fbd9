package database

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// ErrSlotTaken is returned when an insert loses the race for a
// (package, start time) slot. The unique index is the lock: callers never
// pre-check availability to enforce this, they insert and handle this error.
var ErrSlotTaken = errors.New("time slot is already booked")

// ErrDuplicateEvent is returned when a provider webhook event id has
// already been recorded
var ErrDuplicateEvent = errors.New("webhook event already recorded")

// uniqueViolation is the PostgreSQL error code for unique constraint hits
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique violation, optionally
// restricted to a named index/constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
