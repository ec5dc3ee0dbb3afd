package model

import "time"

// PaymentStatus is the status of a single payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is one payment attempt against a booking.  The token is
// issued when payment is initiated and doubles as the idempotency
// key for processing: replaying an outcome under the same token is
// a no-op.  A booking can accumulate several payments when earlier
// attempts failed.
type Payment struct {
	ID          uint64        // payments.id
	BookingID   uint64        // payments.booking_id
	Token       string        // payments.token, unique (e.g. "TXN9C2E41A0FB")
	AmountCents uint32        // payments.amount_cents
	Status      PaymentStatus // payments.status
	CreatedAt   time.Time     // payments.created_at
	ProcessedAt *time.Time    // payments.processed_at (nullable)
}

// RefundStatus is the status of a refund record.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusProcessed RefundStatus = "PROCESSED"
)

// Refund records money returned for a refunded booking.  It points
// at the captured payment it reverses.
type Refund struct {
	ID          uint64       // refunds.id
	BookingID   uint64       // refunds.booking_id
	PaymentID   uint64       // refunds.payment_id
	Reference   string       // refunds.reference, unique (e.g. "REF0A1B2C3D4E")
	AmountCents uint32       // refunds.amount_cents
	Status      RefundStatus // refunds.status
	Reason      string       // refunds.reason
	CreatedAt   time.Time    // refunds.created_at
	ProcessedAt *time.Time   // refunds.processed_at (nullable)
}
