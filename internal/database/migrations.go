package database

import (
	"context"
	"database/sql"
)

// migrations lists the DDL applied at startup.  Statements are
// idempotent so restarting the service against an existing schema is
// safe.  InnoDB is required: row locks on bookings serialize the
// lifecycle transitions and the seat compare-and-set relies on
// transactional updates.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS flights (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		flight_number VARCHAR(10) NOT NULL,
		origin VARCHAR(100) NOT NULL,
		destination VARCHAR(100) NOT NULL,
		departure_time DATETIME NOT NULL,
		arrival_time DATETIME NOT NULL,
		price_cents INT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_flights_number (flight_number)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS seats (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		flight_id BIGINT UNSIGNED NOT NULL,
		seat_number VARCHAR(5) NOT NULL,
		seat_class VARCHAR(10) NOT NULL DEFAULT 'ECONOMY',
		status VARCHAR(10) NOT NULL DEFAULT 'AVAILABLE',
		version INT UNSIGNED NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_seats_flight_number (flight_id, seat_number),
		KEY idx_seats_flight_status (flight_id, status),
		CONSTRAINT fk_seats_flight FOREIGN KEY (flight_id) REFERENCES flights(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reference VARCHAR(20) NOT NULL,
		flight_id BIGINT UNSIGNED NOT NULL,
		passenger_name VARCHAR(255) NOT NULL,
		passenger_email VARCHAR(255) NOT NULL,
		passenger_phone VARCHAR(20) NOT NULL,
		state VARCHAR(20) NOT NULL DEFAULT 'PENDING_PAYMENT',
		payment_state VARCHAR(10) NOT NULL DEFAULT 'NONE',
		amount_cents INT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		payment_initiated_at DATETIME NULL,
		confirmed_at DATETIME NULL,
		cancelled_at DATETIME NULL,
		expired_at DATETIME NULL,
		refunded_at DATETIME NULL,
		UNIQUE KEY uq_bookings_reference (reference),
		KEY idx_bookings_state (state),
		CONSTRAINT fk_bookings_flight FOREIGN KEY (flight_id) REFERENCES flights(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS booking_seats (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT UNSIGNED NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		price_cents INT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_booking_seats_booking (booking_id),
		CONSTRAINT fk_booking_seats_booking FOREIGN KEY (booking_id) REFERENCES bookings(id),
		CONSTRAINT fk_booking_seats_seat FOREIGN KEY (seat_id) REFERENCES seats(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS seat_holds (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT UNSIGNED NULL,
		hold_token VARCHAR(64) NOT NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'ACTIVE',
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_seat_holds_token (hold_token),
		KEY idx_seat_holds_status_expiry (status, expires_at),
		CONSTRAINT fk_seat_holds_booking FOREIGN KEY (booking_id) REFERENCES bookings(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS hold_seats (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		hold_id BIGINT UNSIGNED NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		UNIQUE KEY uq_hold_seats (hold_id, seat_id),
		CONSTRAINT fk_hold_seats_hold FOREIGN KEY (hold_id) REFERENCES seat_holds(id),
		CONSTRAINT fk_hold_seats_seat FOREIGN KEY (seat_id) REFERENCES seats(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS payments (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT UNSIGNED NOT NULL,
		token VARCHAR(50) NOT NULL,
		amount_cents INT UNSIGNED NOT NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME NULL,
		UNIQUE KEY uq_payments_token (token),
		KEY idx_payments_booking (booking_id),
		CONSTRAINT fk_payments_booking FOREIGN KEY (booking_id) REFERENCES bookings(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS refunds (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT UNSIGNED NOT NULL,
		payment_id BIGINT UNSIGNED NOT NULL,
		reference VARCHAR(50) NOT NULL,
		amount_cents INT UNSIGNED NOT NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
		reason TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME NULL,
		UNIQUE KEY uq_refunds_reference (reference),
		CONSTRAINT fk_refunds_booking FOREIGN KEY (booking_id) REFERENCES bookings(id),
		CONSTRAINT fk_refunds_payment FOREIGN KEY (payment_id) REFERENCES payments(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS booking_state_history (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT UNSIGNED NOT NULL,
		from_state VARCHAR(20) NOT NULL,
		to_state VARCHAR(20) NOT NULL,
		note TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_history_booking (booking_id),
		CONSTRAINT fk_history_booking FOREIGN KEY (booking_id) REFERENCES bookings(id)
	) ENGINE=InnoDB`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
