// Package model defines the booking domain: flights, seats, holds,
// bookings, payments and the errors shared by every layer above the
// database.  Handlers translate these errors into HTTP responses;
// nothing in this package knows about transport or storage.
package model

import (
	"errors"
	"fmt"
)

// ErrSeatUnavailable is returned when a requested seat is not
// AVAILABLE at hold time.  Multi-seat requests fail as a whole; no
// seat from the request stays held.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrHoldExpired is returned when a hold's deadline passed before
// payment completed.  The booking has been (or will be) expired and
// its seats released.
var ErrHoldExpired = errors.New("hold expired")

// ErrNotFound is returned for unknown booking references, flights,
// seats or payment tokens.
var ErrNotFound = errors.New("not found")

// ErrConflict signals an optimistic concurrency collision on the
// seat compare-and-set.  It is retried a bounded number of times
// inside the service and never surfaces to callers.
var ErrConflict = errors.New("conflict")

// InvalidTransitionError is returned when a lifecycle operation is
// attempted from a state that does not permit it.  Carrying both
// states lets clients distinguish "already done" from "impossible".
type InvalidTransitionError struct {
	Reference string
	From      BookingState
	To        BookingState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking %s: cannot transition from %s to %s", e.Reference, e.From, e.To)
}
