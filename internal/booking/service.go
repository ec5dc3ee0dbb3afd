// Package booking implements the seat-hold and booking lifecycle:
// holds on available seats, the booking state machine, payment
// capture and refund, and expiry of lapsed holds.  All state lives
// in the database; the service serializes lifecycle transitions by
// locking the booking row and routes every seat status change
// through the inventory's compare-and-set.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/flight-seat-booking/internal/clock"
	"github.com/iliyamo/flight-seat-booking/internal/model"
	"github.com/iliyamo/flight-seat-booking/internal/queue"
)

// TxRunner runs a function inside a database transaction.  Nested
// invocations join the enclosing transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// FlightStore reads flight records.
type FlightStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Flight, error)
	List(ctx context.Context) ([]model.Flight, error)
}

// SeatStore is the seat inventory.  TryTransition is the sole
// mutation primitive for seat status and fails with
// model.ErrConflict when the seat is not in the expected state.
type SeatStore interface {
	ListAvailable(ctx context.Context, flightID uint64) ([]model.Seat, error)
	SeatsByIDs(ctx context.Context, flightID uint64, ids []uint64) ([]model.Seat, error)
	TryTransition(ctx context.Context, seatID uint64, from, to model.SeatStatus) error
}

// HoldStore persists seat holds.
type HoldStore interface {
	Create(ctx context.Context, h *model.Hold) error
	AttachBooking(ctx context.Context, holdID, bookingID uint64) error
	ByBooking(ctx context.Context, bookingID uint64) ([]model.Hold, error)
	MarkIfActive(ctx context.Context, holdID uint64, to model.HoldStatus) (bool, error)
	ExpiredOrphans(ctx context.Context, now time.Time) ([]model.Hold, error)
}

// BookingStore persists bookings, their seats and the audit trail.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	CreateSeatsBulk(ctx context.Context, seats []model.BookingSeat) error
	GetByReference(ctx context.Context, reference string) (*model.Booking, error)
	GetByReferenceForUpdate(ctx context.Context, reference string) (*model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	PendingExpiredReferences(ctx context.Context, now time.Time) ([]string, error)
	AddStateHistory(ctx context.Context, bookingID uint64, from, to model.BookingState, note string) error
}

// PaymentStore persists payment attempts and refunds.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	ByToken(ctx context.Context, bookingID uint64, token string) (*model.Payment, error)
	CapturedByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error)
	Update(ctx context.Context, p *model.Payment) error
	CreateRefund(ctx context.Context, r *model.Refund) error
}

// EventPublisher pushes booking lifecycle events to the message
// broker.  Publish failures must never fail the booking operation;
// the service logs and moves on.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

const defaultHoldTTL = 10 * time.Minute

// Service wires the stores together and owns every booking
// lifecycle operation.
type Service struct {
	tx       TxRunner
	flights  FlightStore
	seats    SeatStore
	holds    HoldStore
	bookings BookingStore
	payments PaymentStore
	events   EventPublisher
	clock    clock.Clock
	holdTTL  time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithEventPublisher attaches a broker publisher.  Without one,
// events are simply not published.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// NewService constructs a Service.  All stores and the clock must be
// non-nil.
func NewService(tx TxRunner, flights FlightStore, seats SeatStore, holds HoldStore,
	bookings BookingStore, payments PaymentStore, clk clock.Clock, opts ...Option) *Service {
	if tx == nil || flights == nil || seats == nil || holds == nil || bookings == nil || payments == nil || clk == nil {
		panic("nil dependency passed to booking.NewService")
	}
	s := &Service{
		tx:       tx,
		flights:  flights,
		seats:    seats,
		holds:    holds,
		bookings: bookings,
		payments: payments,
		clock:    clk,
		holdTTL:  defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListFlights returns all flights.
func (s *Service) ListFlights(ctx context.Context) ([]model.Flight, error) {
	return s.flights.List(ctx)
}

// ListAvailableSeats returns the AVAILABLE seats of a flight in seat
// order, or model.ErrNotFound for an unknown flight.
func (s *Service) ListAvailableSeats(ctx context.Context, flightID uint64) ([]model.Seat, error) {
	if _, err := s.flights.GetByID(ctx, flightID); err != nil {
		return nil, fmt.Errorf("flight %d: %w", flightID, err)
	}
	return s.seats.ListAvailable(ctx, flightID)
}

// CreateBookingInput carries the request to book seats on a flight.
type CreateBookingInput struct {
	FlightID       uint64
	SeatIDs        []uint64
	PassengerName  string
	PassengerEmail string
	PassengerPhone string
}

// CreateBooking holds the requested seats and creates a booking in
// PENDING_PAYMENT around them.  The hold is all-or-nothing: when any
// seat is not AVAILABLE the whole call fails with
// model.ErrSeatUnavailable and no seat from the request stays held.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	seatIDs := dedupe(in.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("create booking: no seats requested: %w", model.ErrNotFound)
	}

	flight, err := s.flights.GetByID(ctx, in.FlightID)
	if err != nil {
		return nil, fmt.Errorf("flight %d: %w", in.FlightID, err)
	}

	now := s.clock.Now()
	var result *model.Booking

	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		hold, seats, err := s.createHold(txCtx, flight.ID, seatIDs, now)
		if err != nil {
			return err
		}

		reference, err := s.uniqueReference(txCtx)
		if err != nil {
			return err
		}

		b := &model.Booking{
			Reference:      reference,
			FlightID:       flight.ID,
			PassengerName:  in.PassengerName,
			PassengerEmail: in.PassengerEmail,
			PassengerPhone: in.PassengerPhone,
			State:          model.BookingPendingPayment,
			PaymentState:   model.PaymentNone,
			AmountCents:    flight.PriceCents * uint32(len(seats)),
		}
		if err := s.bookings.Create(txCtx, b); err != nil {
			return err
		}

		bookingSeats := make([]model.BookingSeat, 0, len(seats))
		for _, seat := range seats {
			bookingSeats = append(bookingSeats, model.BookingSeat{
				BookingID:  b.ID,
				SeatID:     seat.ID,
				SeatNumber: seat.SeatNumber,
				PriceCents: flight.PriceCents,
			})
		}
		if err := s.bookings.CreateSeatsBulk(txCtx, bookingSeats); err != nil {
			return err
		}
		b.Seats = bookingSeats

		if err := s.holds.AttachBooking(txCtx, hold.ID, b.ID); err != nil {
			return err
		}
		if err := s.bookings.AddStateHistory(txCtx, b.ID, model.BookingPendingPayment, model.BookingPendingPayment, "booking created, seats held"); err != nil {
			return err
		}

		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("reference", result.Reference).
		Uint64("flight_id", result.FlightID).
		Int("seats", len(result.Seats)).
		Msg("booking created")
	return result, nil
}

// GetBooking returns a booking by reference.  Access counts as a
// hold touch: a PENDING_PAYMENT booking whose holds have all lapsed
// is expired on the spot, so callers always observe the enforced
// state even when the sweeper is behind.
func (s *Service) GetBooking(ctx context.Context, reference string) (*model.Booking, error) {
	var result *model.Booking
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.GetByReferenceForUpdate(txCtx, reference)
		if err != nil {
			return fmt.Errorf("booking %s: %w", reference, err)
		}
		if _, err := s.expireIfLapsed(txCtx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel voids a CONFIRMED booking and returns its seats to sale.
// Any other state fails with *model.InvalidTransitionError.
func (s *Service) Cancel(ctx context.Context, reference string) (*model.Booking, error) {
	var result *model.Booking
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.GetByReferenceForUpdate(txCtx, reference)
		if err != nil {
			return fmt.Errorf("booking %s: %w", reference, err)
		}
		if !b.CanTransition(model.BookingCancelled) {
			return &model.InvalidTransitionError{Reference: b.Reference, From: b.State, To: model.BookingCancelled}
		}
		if err := s.transitionSeats(txCtx, b.SeatIDs(), model.SeatBooked, model.SeatAvailable); err != nil {
			return err
		}
		if err := s.applyTransition(txCtx, b, model.BookingCancelled, "booking cancelled"); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, queue.EventBookingCancelled, result)
	return result, nil
}

// ExpireHolds releases every PENDING_PAYMENT booking whose holds
// have all passed their deadline and returns how many bookings this
// call expired.  Each booking is expired in its own transaction
// under a row lock with the state re-checked, so running it
// concurrently with itself or with payment processing never
// double-releases or double-counts.
func (s *Service) ExpireHolds(ctx context.Context) (int, error) {
	now := s.clock.Now()
	refs, err := s.bookings.PendingExpiredReferences(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, ref := range refs {
		err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
			b, err := s.bookings.GetByReferenceForUpdate(txCtx, ref)
			if err != nil {
				return err
			}
			did, err := s.expireIfLapsed(txCtx, b)
			if err != nil {
				return err
			}
			if did {
				expired++
			}
			return nil
		})
		if err != nil {
			// Keep sweeping the rest; one stuck booking should not
			// block seat release for everyone else.
			log.Error().Err(err).Str("reference", ref).Msg("failed to expire booking")
		}
	}
	if expired > 0 {
		log.Info().Int("expired", expired).Msg("expired lapsed bookings")
	}
	return expired, nil
}

// ReleaseOrphanedHolds releases ACTIVE holds past their deadline
// that never became part of a booking.  Normal flows never produce
// these; the sweeper calls it to mop up after crashes between hold
// creation and booking creation.
func (s *Service) ReleaseOrphanedHolds(ctx context.Context) (int, error) {
	now := s.clock.Now()
	released := 0
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		orphans, err := s.holds.ExpiredOrphans(txCtx, now)
		if err != nil {
			return err
		}
		for i := range orphans {
			did, err := s.releaseHold(txCtx, &orphans[i], model.HoldExpired, model.SeatHeld, model.SeatAvailable)
			if err != nil {
				return err
			}
			if did {
				released++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

// applyTransition moves the booking through the state machine,
// persists it and appends the audit row.
func (s *Service) applyTransition(ctx context.Context, b *model.Booking, to model.BookingState, note string) error {
	from := b.State
	if err := b.Transition(to, s.clock.Now()); err != nil {
		return err
	}
	if err := s.bookings.Update(ctx, b); err != nil {
		return err
	}
	return s.bookings.AddStateHistory(ctx, b.ID, from, to, note)
}

// expireIfLapsed applies lazy expiry to a locked booking: when it is
// PENDING_PAYMENT and no hold is still live, the holds are released,
// the seats return to AVAILABLE and the booking moves to EXPIRED.
// It reports whether this call expired the booking.
func (s *Service) expireIfLapsed(ctx context.Context, b *model.Booking) (bool, error) {
	if b.State != model.BookingPendingPayment {
		return false, nil
	}
	holds, err := s.holds.ByBooking(ctx, b.ID)
	if err != nil {
		return false, err
	}
	if !holdsLapsed(holds, s.clock.Now()) {
		return false, nil
	}
	for i := range holds {
		if _, err := s.releaseHold(ctx, &holds[i], model.HoldExpired, model.SeatHeld, model.SeatAvailable); err != nil {
			return false, err
		}
	}
	if err := s.applyTransition(ctx, b, model.BookingExpired, "holds expired"); err != nil {
		return false, err
	}
	s.publish(ctx, queue.EventBookingExpired, b)
	return true, nil
}

// publish sends a lifecycle event to the broker when one is
// configured.  Failures are logged, never propagated.
func (s *Service) publish(ctx context.Context, eventType string, b *model.Booking) {
	if s.events == nil {
		return
	}
	seats := make([]string, 0, len(b.Seats))
	for _, seat := range b.Seats {
		seats = append(seats, seat.SeatNumber)
	}
	ev := queue.BookingEvent{
		Type:        eventType,
		Reference:   b.Reference,
		FlightID:    b.FlightID,
		State:       string(b.State),
		Seats:       seats,
		AmountCents: b.AmountCents,
		OccurredAt:  s.clock.Now().Format(time.RFC3339),
	}
	if err := s.events.PublishBookingEvent(ctx, ev); err != nil {
		log.Warn().Err(err).Str("reference", b.Reference).Str("event", eventType).Msg("failed to publish booking event")
	}
}

// dedupe drops zero and duplicate seat IDs preserving order.
func dedupe(ids []uint64) []uint64 {
	unique := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	return unique
}
