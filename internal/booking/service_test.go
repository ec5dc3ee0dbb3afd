package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-booking/internal/clock"
	"github.com/iliyamo/flight-seat-booking/internal/model"
	"github.com/iliyamo/flight-seat-booking/internal/queue"
)

const testHoldTTL = 10 * time.Minute

// newTestService wires a Service over the in-memory store with a
// fixed clock and a recording publisher.
func newTestService(t *testing.T) (*Service, *memStore, *clock.Fixed, *recordingPublisher) {
	t.Helper()
	m := newMemStore()
	clk := clock.NewFixed(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))
	pub := &recordingPublisher{}
	svc := NewService(m, m, m, m, bookingStoreView{m}, paymentStoreView{m}, clk,
		WithHoldTTL(testHoldTTL),
		WithEventPublisher(pub),
	)
	return svc, m, clk, pub
}

func createTestBooking(t *testing.T, svc *Service, flightID uint64, seatIDs ...uint64) *model.Booking {
	t.Helper()
	b, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		FlightID:      flightID,
		SeatIDs:       seatIDs,
		PassengerName: "Ada Lovelace",
	})
	require.NoError(t, err)
	return b
}

func TestCreateBookingHoldsSeats(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A", "1B", "1C")

	b, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		FlightID:       flight.ID,
		SeatIDs:        []uint64{seatIDs[0], seatIDs[1], seatIDs[1]}, // duplicate collapses
		PassengerName:  "Ada Lovelace",
		PassengerEmail: "ada@example.com",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^BK[0-9A-F]{8}$`), b.Reference)
	assert.Equal(t, model.BookingPendingPayment, b.State)
	assert.Equal(t, model.PaymentNone, b.PaymentState)
	assert.Equal(t, uint32(30000), b.AmountCents)
	require.Len(t, b.Seats, 2)

	assert.Equal(t, model.SeatHeld, m.seatStatus(seatIDs[0]))
	assert.Equal(t, model.SeatHeld, m.seatStatus(seatIDs[1]))
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[2]))

	holds, err := m.ByBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, model.HoldActive, holds[0].Status)
	assert.Equal(t, testHoldTTL, holds[0].ExpiresAt.Sub(holds[0].CreatedAt))
}

func TestCreateBookingAllOrNothing(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A", "1B")

	// 1B already claimed by someone else.
	require.NoError(t, m.TryTransition(context.Background(), seatIDs[1], model.SeatAvailable, model.SeatHeld))

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		FlightID:      flight.ID,
		SeatIDs:       seatIDs,
		PassengerName: "Ada Lovelace",
	})
	require.ErrorIs(t, err, model.ErrSeatUnavailable)
	assert.Contains(t, err.Error(), "1B")

	// The claim on 1A must have been rolled back.
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[0]))
}

func TestCreateBookingUnknownSeat(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		FlightID:      flight.ID,
		SeatIDs:       []uint64{seatIDs[0], 999},
		PassengerName: "Ada Lovelace",
	})
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[0]))
}

func TestCreateBookingUnknownFlight(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		FlightID:      42,
		SeatIDs:       []uint64{1},
		PassengerName: "Ada Lovelace",
	})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestListAvailableSeatsOrdering(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, _ := m.addFlight("DM100", 15000, "10A", "2A", "2B", "1C")

	seats, err := svc.ListAvailableSeats(context.Background(), flight.ID)
	require.NoError(t, err)
	numbers := make([]string, 0, len(seats))
	for _, s := range seats {
		numbers = append(numbers, s.SeatNumber)
	}
	// Row order, not lexicographic: 2A before 10A.
	assert.Equal(t, []string{"1C", "2A", "2B", "10A"}, numbers)
}

func TestGetBookingLazyExpiry(t *testing.T) {
	svc, m, clk, pub := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A", "1B")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)

	// Before the deadline the booking is untouched.
	got, err := svc.GetBooking(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPendingPayment, got.State)

	clk.Advance(testHoldTTL + time.Second)

	got, err = svc.GetBooking(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingExpired, got.State)
	require.NotNil(t, got.ExpiredAt)
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[0]))
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[1]))
	assert.Equal(t, []string{queue.EventBookingExpired}, pub.types())

	// A second read finds the terminal state, no double release.
	got, err = svc.GetBooking(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingExpired, got.State)
	assert.Equal(t, []string{queue.EventBookingExpired}, pub.types())
}

func TestCancelConfirmedBooking(t *testing.T) {
	svc, m, _, pub := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)
	confirmTestBooking(t, svc, b.Reference)

	got, err := svc.Cancel(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.State)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[0]))
	assert.Contains(t, pub.types(), queue.EventBookingCancelled)

	// Terminal states reject further transitions.
	_, err = svc.Cancel(context.Background(), b.Reference)
	var inv *model.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, model.BookingCancelled, inv.From)
}

func TestCancelPendingBookingFails(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)

	_, err := svc.Cancel(context.Background(), b.Reference)
	var inv *model.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, model.BookingPendingPayment, inv.From)
	assert.Equal(t, model.BookingCancelled, inv.To)

	// Seats stay held; cancel must not leak them back to sale.
	assert.Equal(t, model.SeatHeld, m.seatStatus(seatIDs[0]))
}

func TestExpireHoldsSweep(t *testing.T) {
	svc, m, clk, _ := newTestService(t)
	flight, seatIDs := m.addFlight("DM100", 15000, "1A", "1B", "1C")
	b1 := createTestBooking(t, svc, flight.ID, seatIDs[0])
	b2 := createTestBooking(t, svc, flight.ID, seatIDs[1])

	// A confirmed booking must survive the sweep untouched.
	b3 := createTestBooking(t, svc, flight.ID, seatIDs[2])
	confirmTestBooking(t, svc, b3.Reference)

	clk.Advance(testHoldTTL + time.Second)

	expired, err := svc.ExpireHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	for _, ref := range []string{b1.Reference, b2.Reference} {
		got, err := svc.GetBooking(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, model.BookingExpired, got.State)
	}
	got, err := svc.GetBooking(context.Background(), b3.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.State)
	assert.Equal(t, model.SeatBooked, m.seatStatus(seatIDs[2]))

	// Sweeping again finds nothing.
	expired, err = svc.ExpireHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}

func TestReleaseOrphanedHolds(t *testing.T) {
	svc, m, clk, _ := newTestService(t)
	_, seatIDs := m.addFlight("DM100", 15000, "1A")

	// Simulate a crash between hold creation and booking creation.
	require.NoError(t, m.TryTransition(context.Background(), seatIDs[0], model.SeatAvailable, model.SeatHeld))
	orphan := &model.Hold{
		Token:     "deadbeef",
		Status:    model.HoldActive,
		ExpiresAt: clk.Now().Add(testHoldTTL),
		CreatedAt: clk.Now(),
		SeatIDs:   []uint64{seatIDs[0]},
	}
	require.NoError(t, m.Create(context.Background(), orphan))

	// Not yet expired, nothing to do.
	released, err := svc.ReleaseOrphanedHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	clk.Advance(testHoldTTL + time.Second)

	released, err = svc.ReleaseOrphanedHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, model.SeatAvailable, m.seatStatus(seatIDs[0]))

	released, err = svc.ReleaseOrphanedHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, released)
}

func TestPublisherFailureDoesNotFailOperation(t *testing.T) {
	svc, m, clk, pub := newTestService(t)
	pub.fail = true
	flight, seatIDs := m.addFlight("DM100", 15000, "1A")
	b := createTestBooking(t, svc, flight.ID, seatIDs...)

	clk.Advance(testHoldTTL + time.Second)
	got, err := svc.GetBooking(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingExpired, got.State)
}
