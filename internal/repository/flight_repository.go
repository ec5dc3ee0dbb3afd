package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/flight-seat-booking/internal/model"
)

// FlightRepo provides read access to flights.  Flights are seeded or
// managed out of band; the booking flow only ever reads them.
type FlightRepo struct {
	db *sql.DB
}

// NewFlightRepo constructs a FlightRepo with the given DB handle.
func NewFlightRepo(db *sql.DB) *FlightRepo { return &FlightRepo{db: db} }

const flightColumns = `id, flight_number, origin, destination, departure_time, arrival_time, price_cents, created_at, updated_at`

func scanFlight(row *sql.Row) (*model.Flight, error) {
	var f model.Flight
	err := row.Scan(&f.ID, &f.FlightNumber, &f.Origin, &f.Destination,
		&f.DepartureTime, &f.ArrivalTime, &f.PriceCents, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// GetByID returns a flight or model.ErrNotFound.
func (r *FlightRepo) GetByID(ctx context.Context, id uint64) (*model.Flight, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+flightColumns+` FROM flights WHERE id = ?`, id)
	return scanFlight(row)
}

// List returns all flights ordered by departure time, soonest first.
func (r *FlightRepo) List(ctx context.Context) ([]model.Flight, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flights []model.Flight
	for rows.Next() {
		var f model.Flight
		if err := rows.Scan(&f.ID, &f.FlightNumber, &f.Origin, &f.Destination,
			&f.DepartureTime, &f.ArrivalTime, &f.PriceCents, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}
