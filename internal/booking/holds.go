package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/flight-seat-booking/internal/model"
)

// casAttempts bounds the internal retries on a seat compare-and-set
// conflict before the error surfaces.
const casAttempts = 3

// createHold claims every requested seat and records one hold
// covering them.  Seats are claimed one by one through the
// compare-and-set; when any claim fails, the claims that already
// succeeded are compensated back to AVAILABLE and the call fails
// with model.ErrSeatUnavailable naming the seat.  The enclosing
// transaction additionally guarantees no partial hold is ever
// visible outside.
func (s *Service) createHold(ctx context.Context, flightID uint64, seatIDs []uint64, now time.Time) (*model.Hold, []model.Seat, error) {
	seats, err := s.seats.SeatsByIDs(ctx, flightID, seatIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(seats) != len(seatIDs) {
		return nil, nil, fmt.Errorf("create hold: unknown seat in request: %w", model.ErrNotFound)
	}

	claimed := make([]uint64, 0, len(seats))
	for _, seat := range seats {
		if err := s.transitionSeat(ctx, seat.ID, model.SeatAvailable, model.SeatHeld); err != nil {
			// Roll back the seats claimed so far; all-or-nothing.
			for _, id := range claimed {
				if rbErr := s.transitionSeat(ctx, id, model.SeatHeld, model.SeatAvailable); rbErr != nil {
					return nil, nil, rbErr
				}
			}
			if errors.Is(err, model.ErrConflict) {
				return nil, nil, fmt.Errorf("seat %s: %w", seat.SeatNumber, model.ErrSeatUnavailable)
			}
			return nil, nil, err
		}
		claimed = append(claimed, seat.ID)
	}

	token, err := randomToken(16)
	if err != nil {
		return nil, nil, err
	}
	hold := &model.Hold{
		Token:     token,
		Status:    model.HoldActive,
		ExpiresAt: now.Add(s.holdTTL),
		CreatedAt: now,
		SeatIDs:   claimed,
	}
	if err := s.holds.Create(ctx, hold); err != nil {
		return nil, nil, err
	}
	return hold, seats, nil
}

// releaseHold terminates an ACTIVE hold and moves its seats from
// seatFrom to seatTo.  The status move is conditional on the hold
// still being ACTIVE, which makes the whole operation idempotent: a
// hold already EXPIRED or CONSUMED is a no-op, not an error, and its
// seats are left alone.  It reports whether this call did the move.
func (s *Service) releaseHold(ctx context.Context, h *model.Hold, to model.HoldStatus, seatFrom, seatTo model.SeatStatus) (bool, error) {
	moved, err := s.holds.MarkIfActive(ctx, h.ID, to)
	if err != nil {
		return false, err
	}
	if !moved {
		return false, nil
	}
	h.Status = to
	if err := s.transitionSeats(ctx, h.SeatIDs, seatFrom, seatTo); err != nil {
		return false, err
	}
	return true, nil
}

// transitionSeat applies one compare-and-set with bounded retries on
// conflict.  The backoff is short; conflicts resolve as soon as the
// competing transaction commits or aborts.
func (s *Service) transitionSeat(ctx context.Context, seatID uint64, from, to model.SeatStatus) error {
	var err error
	for attempt := 0; attempt < casAttempts; attempt++ {
		err = s.seats.TryTransition(ctx, seatID, from, to)
		if !errors.Is(err, model.ErrConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 5 * time.Millisecond):
		}
	}
	return fmt.Errorf("seat %d: transition %s to %s: %w", seatID, from, to, err)
}

// transitionSeats applies transitionSeat to each seat in order.
func (s *Service) transitionSeats(ctx context.Context, seatIDs []uint64, from, to model.SeatStatus) error {
	for _, id := range seatIDs {
		if err := s.transitionSeat(ctx, id, from, to); err != nil {
			return err
		}
	}
	return nil
}

// holdsLapsed reports whether no hold still protects the booking's
// seats: every hold is either terminal already or past its deadline.
func holdsLapsed(holds []model.Hold, now time.Time) bool {
	for i := range holds {
		if holds[i].Status == model.HoldActive && !holds[i].ExpiredAt(now) {
			return false
		}
	}
	return true
}
