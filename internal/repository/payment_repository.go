package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/flight-seat-booking/internal/model"
)

// PaymentRepo provides data access to payments and refunds.  Lookups
// return (nil, nil) when no row matches so callers can branch
// without error juggling; unique violations on the token column
// surface as model.ErrConflict.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, booking_id, token, amount_cents, status, created_at, processed_at`

// Create inserts a payment attempt and writes back the generated ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO payments (booking_id, token, amount_cents, status) VALUES (?, ?, ?, ?)`,
		p.BookingID, p.Token, p.AmountCents, p.Status)
	if err != nil {
		if isDuplicateEntry(err) {
			return model.ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT created_at FROM payments WHERE id = ?`, p.ID)
	return row.Scan(&p.CreatedAt)
}

// ByToken returns the payment issued under the token for the given
// booking, or nil when the booking has no such payment.
func (r *PaymentRepo) ByToken(ctx context.Context, bookingID uint64, token string) (*model.Payment, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = ? AND token = ?`,
		bookingID, token)
	return scanPayment(row)
}

// CapturedByBooking returns the successful payment of a booking, or
// nil when none was captured.
func (r *PaymentRepo) CapturedByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE booking_id = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		bookingID, model.PaymentStatusSuccess)
	return scanPayment(row)
}

// Update persists a payment's status and processed timestamp.
func (r *PaymentRepo) Update(ctx context.Context, p *model.Payment) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE payments SET status = ?, processed_at = ? WHERE id = ?`,
		p.Status, utcOrNil(p.ProcessedAt), p.ID)
	return err
}

// CreateRefund inserts a refund record and writes back its ID.
func (r *PaymentRepo) CreateRefund(ctx context.Context, ref *model.Refund) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO refunds (booking_id, payment_id, reference, amount_cents, status, reason, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ref.BookingID, ref.PaymentID, ref.Reference, ref.AmountCents, ref.Status, ref.Reason,
		utcOrNil(ref.ProcessedAt))
	if err != nil {
		if isDuplicateEntry(err) {
			return model.ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ref.ID = uint64(id)
	return nil
}

func scanPayment(row *sql.Row) (*model.Payment, error) {
	var p model.Payment
	var processed sql.NullTime
	err := row.Scan(&p.ID, &p.BookingID, &p.Token, &p.AmountCents, &p.Status, &p.CreatedAt, &processed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.ProcessedAt = nullTime(processed)
	return &p, nil
}
