package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/flight-seat-booking/internal/model"
)

// BookingRepo provides data access to bookings, their seats and the
// state history audit trail.  The ForUpdate variant of the lookup is
// what serializes lifecycle transitions per booking: payment
// processing, cancellation and expiry all lock the row before
// re-reading state.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, reference, flight_id, passenger_name, passenger_email, passenger_phone,
	state, payment_state, amount_cents, created_at, updated_at,
	payment_initiated_at, confirmed_at, cancelled_at, expired_at, refunded_at`

// Create inserts a new booking and reads the row back to populate
// the generated ID and database timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO bookings (reference, flight_id, passenger_name, passenger_email, passenger_phone, state, payment_state, amount_cents)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.FlightID, b.PassengerName, b.PassengerEmail, b.PassengerPhone,
		b.State, b.PaymentState, b.AmountCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM bookings WHERE id = ?`, b.ID)
	return row.Scan(&b.CreatedAt, &b.UpdatedAt)
}

// CreateSeatsBulk inserts the booking_seats rows in one statement.
func (r *BookingRepo) CreateSeatsBulk(ctx context.Context, seats []model.BookingSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id, price_cents) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, s.BookingID, s.SeatID, s.PriceCents)
	}
	_, err := q(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}

// GetByReference returns a booking with its seats loaded, or
// model.ErrNotFound.
func (r *BookingRepo) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	return r.getByReference(ctx, reference, false)
}

// GetByReferenceForUpdate is GetByReference with a row lock.  It
// must run inside a transaction; the lock is held until commit and
// serializes every lifecycle transition on the booking.
func (r *BookingRepo) GetByReferenceForUpdate(ctx context.Context, reference string) (*model.Booking, error) {
	return r.getByReference(ctx, reference, true)
}

func (r *BookingRepo) getByReference(ctx context.Context, reference string, forUpdate bool) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var b model.Booking
	var initiated, confirmed, cancelled, expired, refunded sql.NullTime
	err := q(ctx, r.db).QueryRowContext(ctx, query, reference).Scan(
		&b.ID, &b.Reference, &b.FlightID, &b.PassengerName, &b.PassengerEmail, &b.PassengerPhone,
		&b.State, &b.PaymentState, &b.AmountCents, &b.CreatedAt, &b.UpdatedAt,
		&initiated, &confirmed, &cancelled, &expired, &refunded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	b.PaymentInitiatedAt = nullTime(initiated)
	b.ConfirmedAt = nullTime(confirmed)
	b.CancelledAt = nullTime(cancelled)
	b.ExpiredAt = nullTime(expired)
	b.RefundedAt = nullTime(refunded)

	if err := r.loadSeats(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Update persists the booking's mutable fields: lifecycle state,
// payment state and the per-state timestamps.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE bookings
		 SET state = ?, payment_state = ?, payment_initiated_at = ?, confirmed_at = ?,
		     cancelled_at = ?, expired_at = ?, refunded_at = ?
		 WHERE id = ?`,
		b.State, b.PaymentState, utcOrNil(b.PaymentInitiatedAt), utcOrNil(b.ConfirmedAt),
		utcOrNil(b.CancelledAt), utcOrNil(b.ExpiredAt), utcOrNil(b.RefundedAt), b.ID)
	return err
}

// ReferenceExists reports whether a booking reference is taken.
func (r *BookingRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE reference = ?)`, reference).Scan(&exists)
	return exists, err
}

// PendingExpiredReferences lists PENDING_PAYMENT bookings whose
// holds have all passed their deadline at the given instant.  The
// result is a candidate list only: callers must re-check each
// booking under a row lock before expiring it, since a concurrent
// payment may confirm the booking in between.
func (r *BookingRepo) PendingExpiredReferences(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT b.reference FROM bookings b
		 WHERE b.state = ?
		   AND NOT EXISTS (
		     SELECT 1 FROM seat_holds h
		     WHERE h.booking_id = b.id AND h.status = ? AND h.expires_at > ?
		   )
		 ORDER BY b.id`,
		model.BookingPendingPayment, model.HoldActive, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// AddStateHistory appends one audit row for a lifecycle transition.
func (r *BookingRepo) AddStateHistory(ctx context.Context, bookingID uint64, from, to model.BookingState, note string) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO booking_state_history (booking_id, from_state, to_state, note) VALUES (?, ?, ?, ?)`,
		bookingID, from, to, note)
	return err
}

func (r *BookingRepo) loadSeats(ctx context.Context, b *model.Booking) error {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT bs.id, bs.booking_id, bs.seat_id, se.seat_number, bs.price_cents
		 FROM booking_seats bs
		 JOIN seats se ON se.id = bs.seat_id
		 WHERE bs.booking_id = ?
		 ORDER BY LENGTH(se.seat_number), se.seat_number`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.BookingSeat
		if err := rows.Scan(&s.ID, &s.BookingID, &s.SeatID, &s.SeatNumber, &s.PriceCents); err != nil {
			return err
		}
		b.Seats = append(b.Seats, s)
	}
	return rows.Err()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func utcOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
