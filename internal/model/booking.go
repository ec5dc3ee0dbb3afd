package model

import "time"

// BookingState is the lifecycle state of a booking.  CANCELLED,
// REFUNDED and EXPIRED are terminal; no transition leaves them.
type BookingState string

const (
	BookingPendingPayment BookingState = "PENDING_PAYMENT"
	BookingConfirmed      BookingState = "CONFIRMED"
	BookingCancelled      BookingState = "CANCELLED"
	BookingRefunded       BookingState = "REFUNDED"
	BookingExpired        BookingState = "EXPIRED"
)

// PaymentState tracks how far payment has progressed for a booking,
// independent of the lifecycle state.
type PaymentState string

const (
	PaymentNone      PaymentState = "NONE"
	PaymentInitiated PaymentState = "INITIATED"
	PaymentCaptured  PaymentState = "CAPTURED"
	PaymentRefunded  PaymentState = "REFUNDED"
)

// bookingTransitions enumerates every legal lifecycle transition.
// PENDING_PAYMENT appears in its own target list because initiating
// payment records intent without changing the lifecycle state.
var bookingTransitions = map[BookingState][]BookingState{
	BookingPendingPayment: {BookingPendingPayment, BookingConfirmed, BookingExpired},
	BookingConfirmed:      {BookingCancelled, BookingRefunded},
	BookingCancelled:      {},
	BookingRefunded:       {},
	BookingExpired:        {},
}

// Booking aggregates held seats on a flight into a single unit with
// a unique human-facing reference.  The reference is immutable and
// is the external lookup key.  The lifecycle state and the states of
// the referenced seats stay consistent: CONFIRMED implies all seats
// BOOKED, EXPIRED/CANCELLED/REFUNDED imply the seats went back to
// AVAILABLE.
//
// Fields:
//  ID                 – primary key identifier.
//  Reference          – unique booking reference (e.g. "BK3F0A91C2").
//  FlightID           – flight being booked.
//  PassengerName      – passenger contact details, captured at
//  PassengerEmail       creation time.
//  PassengerPhone
//  State              – lifecycle state, see BookingState.
//  PaymentState       – payment progress, see PaymentState.
//  AmountCents        – total price in cents for all seats.
//  Seats              – seats in the booking, ordered by seat number.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
//  PaymentInitiatedAt – set when payment is first initiated.
//  ConfirmedAt        – set on transition to CONFIRMED.
//  CancelledAt        – set on transition to CANCELLED.
//  ExpiredAt          – set on transition to EXPIRED.
//  RefundedAt         – set on transition to REFUNDED.
type Booking struct {
	ID                 uint64        // bookings.id
	Reference          string        // bookings.reference
	FlightID           uint64        // bookings.flight_id
	PassengerName      string        // bookings.passenger_name
	PassengerEmail     string        // bookings.passenger_email
	PassengerPhone     string        // bookings.passenger_phone
	State              BookingState  // bookings.state
	PaymentState       PaymentState  // bookings.payment_state
	AmountCents        uint32        // bookings.amount_cents
	Seats              []BookingSeat // bookings 1-N booking_seats
	CreatedAt          time.Time     // bookings.created_at
	UpdatedAt          time.Time     // bookings.updated_at
	PaymentInitiatedAt *time.Time    // bookings.payment_initiated_at (nullable)
	ConfirmedAt        *time.Time    // bookings.confirmed_at (nullable)
	CancelledAt        *time.Time    // bookings.cancelled_at (nullable)
	ExpiredAt          *time.Time    // bookings.expired_at (nullable)
	RefundedAt         *time.Time    // bookings.refunded_at (nullable)
}

// BookingSeat links a booking to one seat with the price it was
// sold at.
type BookingSeat struct {
	ID         uint64 // booking_seats.id
	BookingID  uint64 // booking_seats.booking_id
	SeatID     uint64 // booking_seats.seat_id
	SeatNumber string // seats.seat_number, joined in for display
	PriceCents uint32 // booking_seats.price_cents
}

// SeatIDs returns the IDs of the booking's seats in stored order.
func (b *Booking) SeatIDs() []uint64 {
	ids := make([]uint64, 0, len(b.Seats))
	for _, s := range b.Seats {
		ids = append(ids, s.SeatID)
	}
	return ids
}

// CanTransition reports whether moving from the booking's current
// state to the requested state is legal.
func (b *Booking) CanTransition(to BookingState) bool {
	for _, allowed := range bookingTransitions[b.State] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the booking to the requested state, stamping the
// matching timestamp field.  It returns *InvalidTransitionError when
// the transition is not in the table; the booking is left untouched
// in that case.
func (b *Booking) Transition(to BookingState, now time.Time) error {
	if !b.CanTransition(to) {
		return &InvalidTransitionError{Reference: b.Reference, From: b.State, To: to}
	}
	b.State = to
	b.UpdatedAt = now
	switch to {
	case BookingConfirmed:
		b.ConfirmedAt = &now
	case BookingCancelled:
		b.CancelledAt = &now
	case BookingExpired:
		b.ExpiredAt = &now
	case BookingRefunded:
		b.RefundedAt = &now
	}
	return nil
}

// StateChange is one audit row recording a lifecycle transition.
type StateChange struct {
	ID        uint64       // booking_state_history.id
	BookingID uint64       // booking_state_history.booking_id
	FromState BookingState // booking_state_history.from_state
	ToState   BookingState // booking_state_history.to_state
	Note      string       // booking_state_history.note
	CreatedAt time.Time    // booking_state_history.created_at
}
