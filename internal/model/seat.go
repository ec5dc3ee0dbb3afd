package model

import "time"

// SeatStatus is the availability state of a seat on a flight.  All
// status changes go through the inventory's compare-and-set
// primitive; no other code writes seat status directly.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // open for sale
	SeatHeld      SeatStatus = "HELD"      // claimed by an active hold
	SeatBooked    SeatStatus = "BOOKED"    // part of a confirmed booking
)

// Seat describes a physical seat on a flight.  Seats are uniquely
// identified by their flight and seat number (row plus letter, e.g.
// "12A").  The seat class indicates the cabin.
//
// Fields:
//  ID         – primary key identifier.
//  FlightID   – flight to which this seat belongs.
//  SeatNumber – designator within the flight (e.g. "12A").
//  SeatClass  – cabin class (ECONOMY, BUSINESS, FIRST).
//  Status     – availability status, see SeatStatus.
//  Version    – optimistic locking counter, bumped on every
//               status transition.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Seat struct {
	ID         uint64     // seats.id
	FlightID   uint64     // seats.flight_id
	SeatNumber string     // seats.seat_number
	SeatClass  string     // seats.seat_class (ECONOMY, BUSINESS, FIRST)
	Status     SeatStatus // seats.status
	Version    uint32     // seats.version
	CreatedAt  time.Time  // seats.created_at
	UpdatedAt  time.Time  // seats.updated_at
}
