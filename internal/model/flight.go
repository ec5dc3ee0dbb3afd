package model

import "time"

// Flight describes a single scheduled flight whose seats can be
// booked.  Seats are created alongside the flight and reference it
// by ID.  Prices are stored in cents to avoid floating point
// arithmetic on money.
//
// Fields:
//  ID            – primary key identifier.
//  FlightNumber  – human-facing flight number, unique (e.g. "AA101").
//  Origin        – departure airport or city.
//  Destination   – arrival airport or city.
//  DepartureTime – scheduled departure in UTC.
//  ArrivalTime   – scheduled arrival in UTC.
//  PriceCents    – base price per seat in cents.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Flight struct {
	ID            uint64    // flights.id
	FlightNumber  string    // flights.flight_number
	Origin        string    // flights.origin
	Destination   string    // flights.destination
	DepartureTime time.Time // flights.departure_time
	ArrivalTime   time.Time // flights.arrival_time
	PriceCents    uint32    // flights.price_cents
	CreatedAt     time.Time // flights.created_at
	UpdatedAt     time.Time // flights.updated_at
}
