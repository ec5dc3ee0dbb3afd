// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types carried in BookingEvent.Type.  All booking lifecycle
// events share one queue; consumers branch on the type.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingRefunded  = "booking.refunded"
	EventBookingExpired   = "booking.expired"
)

// BookingQueueName is the durable queue booking lifecycle events are
// published to and consumed from.
const BookingQueueName = "booking.events"

// BookingEvent is published when a booking changes lifecycle state.
// It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type BookingEvent struct {
	Type        string   `json:"type"`
	Reference   string   `json:"reference"`
	FlightID    uint64   `json:"flight_id"`
	State       string   `json:"state"`
	Seats       []string `json:"seats"`
	AmountCents uint32   `json:"amount_cents"`
	OccurredAt  string   `json:"occurred_at"`
}
