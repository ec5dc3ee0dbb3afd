package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/flight-seat-booking/internal/model"
)

// SeatRepo is the seat inventory.  TryTransition is the only write
// path for seat status anywhere in the service; every hold, booking,
// release and refund funnels through it so concurrent callers can
// never both move a seat out of the same state.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, flight_id, seat_number, seat_class, status, version, created_at, updated_at`

// ListAvailable returns the AVAILABLE seats of a flight ordered by
// seat number.  Ordering by length first keeps "2A" before "10A".
func (r *SeatRepo) ListAvailable(ctx context.Context, flightID uint64) ([]model.Seat, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats
		 WHERE flight_id = ? AND status = ?
		 ORDER BY LENGTH(seat_number), seat_number`,
		flightID, model.SeatAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// SeatsByIDs returns the given seats of a flight ordered by seat
// number.  Seats belonging to other flights are silently absent from
// the result; callers detect that by comparing lengths.
func (r *SeatRepo) SeatsByIDs(ctx context.Context, flightID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, flightID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats
		 WHERE flight_id = ? AND id IN (`+placeholders+`)
		 ORDER BY LENGTH(seat_number), seat_number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// TryTransition is the compare-and-set on seat status: the update
// applies only when the seat is currently in the from status, and
// bumps the version.  When the precondition does not hold (or the
// seat does not exist) it returns model.ErrConflict and changes
// nothing.
func (r *SeatRepo) TryTransition(ctx context.Context, seatID uint64, from, to model.SeatStatus) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE seats SET status = ?, version = version + 1 WHERE id = ? AND status = ?`,
		to, seatID, from)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrConflict
	}
	return nil
}

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.FlightID, &s.SeatNumber, &s.SeatClass,
			&s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}
