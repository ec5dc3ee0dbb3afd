package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDemoFlight inserts one demo flight with a small seat map so the
// API is usable out of the box.  Rows 1-2 are BUSINESS, the rest
// ECONOMY, six seats per row lettered A-F.  The seed is skipped when
// the flight already exists.
func SeedDemoFlight(ctx context.Context, db *sql.DB) error {
	const flightNumber = "DM100"

	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM flights WHERE flight_number = ?)`, flightNumber,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	departure := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	res, err := db.ExecContext(ctx,
		`INSERT INTO flights (flight_number, origin, destination, departure_time, arrival_time, price_cents)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		flightNumber, "AMS", "LIS", departure, departure.Add(3*time.Hour), 12900,
	)
	if err != nil {
		return err
	}
	flightID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	const rows = 10
	letters := []string{"A", "B", "C", "D", "E", "F"}

	query := `INSERT INTO seats (flight_id, seat_number, seat_class) VALUES `
	args := make([]interface{}, 0, rows*len(letters)*3)
	first := true
	for row := 1; row <= rows; row++ {
		class := "ECONOMY"
		if row <= 2 {
			class = "BUSINESS"
		}
		for _, letter := range letters {
			if !first {
				query += ","
			}
			first = false
			query += "(?, ?, ?)"
			args = append(args, flightID, fmt.Sprintf("%d%s", row, letter), class)
		}
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}
