package model

import "time"

// HoldStatus is the lifecycle state of a seat hold.
type HoldStatus string

const (
	HoldActive   HoldStatus = "ACTIVE"   // seats are claimed, deadline pending
	HoldExpired  HoldStatus = "EXPIRED"  // deadline passed, seats released
	HoldConsumed HoldStatus = "CONSUMED" // payment captured, seats booked
)

// Hold is a temporary, time-bounded exclusive claim on one or more
// seats while a booking awaits payment.  A seat can be referenced by
// at most one ACTIVE hold at a time.  Holds expire automatically at
// their deadline; expiry is enforced both by the sweeper and lazily
// on access, so seats never stay locked when the sweeper is down.
//
// Fields:
//  ID        – primary key identifier.
//  BookingID – owning booking (nil until the booking row exists).
//  Token     – opaque token identifying the hold.
//  Status    – lifecycle state, see HoldStatus.
//  ExpiresAt – deadline after which the hold is releasable.
//  CreatedAt – when the hold was created.
//  SeatIDs   – seats covered by this hold.
type Hold struct {
	ID        uint64     // seat_holds.id
	BookingID *uint64    // seat_holds.booking_id (nullable)
	Token     string     // seat_holds.hold_token
	Status    HoldStatus // seat_holds.status
	ExpiresAt time.Time  // seat_holds.expires_at
	CreatedAt time.Time  // seat_holds.created_at
	SeatIDs   []uint64   // hold_seats.seat_id, ordered by seat number
}

// ExpiredAt reports whether the hold's deadline has passed at the
// given instant.  It says nothing about the hold's status; a
// CONSUMED hold is "expired" by this predicate too, which is why
// callers check Status alongside it.
func (h *Hold) ExpiredAt(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}
