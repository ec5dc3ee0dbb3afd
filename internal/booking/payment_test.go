package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-booking/internal/model"
	"github.com/iliyamo/flight-seat-booking/internal/queue"
)

// confirmTestBooking drives a booking through a successful payment.
func confirmTestBooking(t *testing.T, svc *Service, reference string) string {
	t.Helper()
	token, err := svc.InitiatePayment(context.Background(), reference, 0)
	require.NoError(t, err)
	_, err = svc.ProcessPayment(context.Background(), reference, token, true)
	require.NoError(t, err)
	return token
}

func TestPaymentCaptureConfirmsBooking(t *testing.T) {
	svc, m, _, pub := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A", "1B")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)

	token, err := svc.InitiatePayment(context.Background(), b.Reference, 0)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TXN[0-9A-F]{10}$`), token)

	got, err := svc.GetBooking(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentInitiated, got.PaymentState)
	require.NotNil(t, got.PaymentInitiatedAt)

	got, err = svc.ProcessPayment(context.Background(), b.Reference, token, true)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.State)
	assert.Equal(t, model.PaymentCaptured, got.PaymentState)
	require.NotNil(t, got.ConfirmedAt)

	assert.Equal(t, model.SeatBooked, m.seatStatus(seatIDs[0]))
	assert.Equal(t, model.SeatBooked, m.seatStatus(seatIDs[1]))

	holds, err := m.ByBooking(context.Background(), got.ID)
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, model.HoldConsumed, holds[0].Status)

	assert.Equal(t, []string{queue.EventBookingConfirmed}, pub.types())

	// The payment amount defaulted to the booking total.
	p, err := m.ByToken(context.Background(), got.ID, token)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.PaymentStatusSuccess, p.Status)
	assert.Equal(t, got.AmountCents, p.AmountCents)
}

func TestProcessPaymentIdempotentReplay(t *testing.T) {
	svc, m, _, pub := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)
	token := confirmTestBooking(t, svc, b.Reference)

	// Same token, same outcome: a no-op returning the booking as-is.
	got, err := svc.ProcessPayment(context.Background(), b.Reference, token, true)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.State)
	assert.Equal(t, model.SeatBooked, m.seatStatus(seatIDs[0]))
	assert.Equal(t, []string{queue.EventBookingConfirmed}, pub.types())

	// Same token, opposite outcome: rejected.
	_, err = svc.ProcessPayment(context.Background(), b.Reference, token, false)
	var inv *model.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
}

func TestProcessPaymentFailureReleasesSeats(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A", "1B")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)

	token, err := svc.InitiatePayment(context.Background(), b.Reference, 0)
	require.NoError(t, err)

	got, err := svc.ProcessPayment(context.Background(), b.Reference, token, false)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPendingPayment, got.State)

	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[0]))
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[1]))

	p, err := m.ByToken(context.Background(), got.ID, token)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.PaymentStatusFailed, p.Status)

	// The released seats leave no protecting hold, so a retry is
	// refused and the booking expires.
	_, err = svc.InitiatePayment(context.Background(), b.Reference, 0)
	require.ErrorIs(t, err, model.ErrHoldExpired)

	got, err = svc.GetBooking(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingExpired, got.State)

	// Replaying the failed outcome still works after expiry.
	_, err = svc.ProcessPayment(context.Background(), b.Reference, token, false)
	require.NoError(t, err)
}

func TestProcessPaymentUnknownToken(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)

	_, err := svc.ProcessPayment(context.Background(), b.Reference, "TXN0000000000", true)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestProcessPaymentAfterHoldLapse(t *testing.T) {
	svc, m, clk, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)

	token, err := svc.InitiatePayment(context.Background(), b.Reference, 0)
	require.NoError(t, err)

	// The gateway answers after the hold deadline.
	clk.Advance(testHoldTTL + time.Second)

	_, err = svc.ProcessPayment(context.Background(), b.Reference, token, true)
	require.ErrorIs(t, err, model.ErrHoldExpired)

	got, err := svc.GetBooking(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingExpired, got.State)
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[0]))

	p, err := m.ByToken(context.Background(), got.ID, token)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.PaymentStatusFailed, p.Status)
}

func TestInitiatePaymentOnConfirmedFails(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)
	confirmTestBooking(t, svc, b.Reference)

	_, err := svc.InitiatePayment(context.Background(), b.Reference, 0)
	var inv *model.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, model.BookingConfirmed, inv.From)
}

func TestRefundConfirmedBooking(t *testing.T) {
	svc, m, _, pub := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A", "1B")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)
	token := confirmTestBooking(t, svc, b.Reference)

	got, err := svc.Refund(context.Background(), b.Reference, "schedule change")
	require.NoError(t, err)
	assert.Equal(t, model.BookingRefunded, got.State)
	assert.Equal(t, model.PaymentRefunded, got.PaymentState)
	require.NotNil(t, got.RefundedAt)

	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[0]))
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[1]))

	p, err := m.ByToken(context.Background(), got.ID, token)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.PaymentStatusRefunded, p.Status)

	require.Len(t, m.refunds, 1)
	refund := m.refunds[0]
	assert.Regexp(t, regexp.MustCompile(`^REF[0-9A-F]{10}$`), refund.Reference)
	assert.Equal(t, model.RefundStatusProcessed, refund.Status)
	assert.Equal(t, got.AmountCents, refund.AmountCents)
	assert.Equal(t, "schedule change", refund.Reason)

	assert.Contains(t, pub.types(), queue.EventBookingRefunded)

	// Refunding twice is rejected; the state is terminal.
	_, err = svc.Refund(context.Background(), b.Reference, "again")
	var inv *model.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
}

func TestRefundPendingBookingFails(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)

	_, err := svc.Refund(context.Background(), b.Reference, "changed my mind")
	var inv *model.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, model.BookingPendingPayment, inv.From)
	assert.Equal(t, model.BookingRefunded, inv.To)
}

func TestInitiatePaymentExplicitAmount(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)

	token, err := svc.InitiatePayment(context.Background(), b.Reference, 12500)
	require.NoError(t, err)

	p, err := m.ByToken(context.Background(), b.ID, token)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, uint32(12500), p.AmountCents)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
}
