package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/flight-seat-booking/internal/model"
)

// SeatHoldRepo provides data access to seat_holds and the hold_seats
// link table.  Status moves are conditional on the hold still being
// ACTIVE, which is what makes release idempotent: the second caller
// simply matches zero rows.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

// Create inserts the hold and its seat links.  The generated ID is
// written back onto the hold.
func (r *SeatHoldRepo) Create(ctx context.Context, h *model.Hold) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO seat_holds (booking_id, hold_token, status, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		h.BookingID, h.Token, h.Status, h.ExpiresAt.UTC(), h.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)

	if len(h.SeatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO hold_seats (hold_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(h.SeatIDs)*2)
	for i, sid := range h.SeatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, h.ID, sid)
	}
	_, err = q(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}

// AttachBooking links a hold to the booking that owns it.
func (r *SeatHoldRepo) AttachBooking(ctx context.Context, holdID, bookingID uint64) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE seat_holds SET booking_id = ? WHERE id = ?`, bookingID, holdID)
	return err
}

// ByBooking returns all holds of a booking with their seat IDs
// populated, oldest first.
func (r *SeatHoldRepo) ByBooking(ctx context.Context, bookingID uint64) ([]model.Hold, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT id, booking_id, hold_token, status, expires_at, created_at
		 FROM seat_holds WHERE booking_id = ? ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	holds, err := scanHolds(rows)
	if err != nil {
		return nil, err
	}
	for i := range holds {
		if err := r.loadSeatIDs(ctx, &holds[i]); err != nil {
			return nil, err
		}
	}
	return holds, nil
}

// MarkIfActive moves an ACTIVE hold to the given terminal status and
// reports whether this call did the move.  A hold already EXPIRED or
// CONSUMED matches zero rows and returns false with no error.
func (r *SeatHoldRepo) MarkIfActive(ctx context.Context, holdID uint64, to model.HoldStatus) (bool, error) {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE seat_holds SET status = ? WHERE id = ? AND status = ?`,
		to, holdID, model.HoldActive)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExpiredOrphans returns ACTIVE holds past their deadline that never
// got attached to a booking.  The sweeper releases these
// opportunistically; attached holds are handled through their
// booking instead.
func (r *SeatHoldRepo) ExpiredOrphans(ctx context.Context, now time.Time) ([]model.Hold, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT id, booking_id, hold_token, status, expires_at, created_at
		 FROM seat_holds
		 WHERE status = ? AND booking_id IS NULL AND expires_at <= ?`,
		model.HoldActive, now.UTC())
	if err != nil {
		return nil, err
	}
	holds, err := scanHolds(rows)
	if err != nil {
		return nil, err
	}
	for i := range holds {
		if err := r.loadSeatIDs(ctx, &holds[i]); err != nil {
			return nil, err
		}
	}
	return holds, nil
}

func (r *SeatHoldRepo) loadSeatIDs(ctx context.Context, h *model.Hold) error {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT hs.seat_id FROM hold_seats hs
		 JOIN seats se ON se.id = hs.seat_id
		 WHERE hs.hold_id = ?
		 ORDER BY LENGTH(se.seat_number), se.seat_number`, h.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			return err
		}
		h.SeatIDs = append(h.SeatIDs, sid)
	}
	return rows.Err()
}

func scanHolds(rows *sql.Rows) ([]model.Hold, error) {
	defer rows.Close()
	var holds []model.Hold
	for rows.Next() {
		var h model.Hold
		var bookingID sql.NullInt64
		if err := rows.Scan(&h.ID, &bookingID, &h.Token, &h.Status, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		if bookingID.Valid {
			bid := uint64(bookingID.Int64)
			h.BookingID = &bid
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}
