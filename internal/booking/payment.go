package booking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/flight-seat-booking/internal/model"
	"github.com/iliyamo/flight-seat-booking/internal/queue"
)

// InitiatePayment records a payment intent for a PENDING_PAYMENT
// booking and returns the token the gateway must echo back when
// reporting the outcome.  It runs under the booking's row lock, so
// it can never interleave with the sweeper expiring the same
// booking: exactly one of the two wins.  Lapsed holds fail the call
// with model.ErrHoldExpired after expiring the booking.
func (s *Service) InitiatePayment(ctx context.Context, reference string, amountCents uint32) (string, error) {
	var token string
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.GetByReferenceForUpdate(txCtx, reference)
		if err != nil {
			return fmt.Errorf("booking %s: %w", reference, err)
		}
		expired, err := s.expireIfLapsed(txCtx, b)
		if err != nil {
			return err
		}
		if expired {
			return fmt.Errorf("booking %s: %w", reference, model.ErrHoldExpired)
		}
		if b.State != model.BookingPendingPayment {
			return &model.InvalidTransitionError{Reference: b.Reference, From: b.State, To: model.BookingPendingPayment}
		}

		if amountCents == 0 {
			amountCents = b.AmountCents
		}
		p := &model.Payment{
			BookingID:   b.ID,
			Token:       newPaymentToken(),
			AmountCents: amountCents,
			Status:      model.PaymentStatusPending,
		}
		if err := s.payments.Create(txCtx, p); err != nil {
			return err
		}

		now := s.clock.Now()
		b.PaymentState = model.PaymentInitiated
		if b.PaymentInitiatedAt == nil {
			b.PaymentInitiatedAt = &now
		}
		if err := s.applyTransition(txCtx, b, model.BookingPendingPayment, "payment initiated"); err != nil {
			return err
		}

		token = p.Token
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("reference", reference).Msg("payment initiated")
	return token, nil
}

// ProcessPayment applies the gateway's outcome for the payment
// issued under token.  On success the held seats become BOOKED, the
// holds are CONSUMED and the booking moves to CONFIRMED with payment
// CAPTURED.  On failure the holds are released, the seats return to
// sale and the booking stays PENDING_PAYMENT; a later initiate on it
// fails with model.ErrHoldExpired once lazy expiry runs.
//
// Replaying an outcome under the same token is a no-op returning the
// booking unchanged; replaying a different outcome fails with
// *model.InvalidTransitionError.
func (s *Service) ProcessPayment(ctx context.Context, reference, token string, succeed bool) (*model.Booking, error) {
	var (
		result    *model.Booking
		confirmed bool
	)
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.GetByReferenceForUpdate(txCtx, reference)
		if err != nil {
			return fmt.Errorf("booking %s: %w", reference, err)
		}
		p, err := s.payments.ByToken(txCtx, b.ID, token)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("booking %s: payment token: %w", reference, model.ErrNotFound)
		}

		// Idempotent replay: same token, same outcome, nothing to do.
		if p.Status == model.PaymentStatusSuccess && succeed && b.State == model.BookingConfirmed {
			result = b
			return nil
		}
		if p.Status == model.PaymentStatusFailed && !succeed {
			result = b
			return nil
		}
		if p.Status != model.PaymentStatusPending {
			// Same token replayed with the opposite outcome.
			return &model.InvalidTransitionError{Reference: b.Reference, From: b.State, To: targetState(succeed)}
		}

		now := s.clock.Now()
		expired, err := s.expireIfLapsed(txCtx, b)
		if err != nil {
			return err
		}
		if expired {
			// Holds lapsed while the gateway was processing.
			p.Status = model.PaymentStatusFailed
			p.ProcessedAt = &now
			if err := s.payments.Update(txCtx, p); err != nil {
				return err
			}
			return fmt.Errorf("booking %s: %w", reference, model.ErrHoldExpired)
		}
		if b.State != model.BookingPendingPayment {
			return &model.InvalidTransitionError{Reference: b.Reference, From: b.State, To: targetState(succeed)}
		}

		holds, err := s.holds.ByBooking(txCtx, b.ID)
		if err != nil {
			return err
		}

		if succeed {
			for i := range holds {
				if _, err := s.releaseHold(txCtx, &holds[i], model.HoldConsumed, model.SeatHeld, model.SeatBooked); err != nil {
					return err
				}
			}
			p.Status = model.PaymentStatusSuccess
			p.ProcessedAt = &now
			if err := s.payments.Update(txCtx, p); err != nil {
				return err
			}
			b.PaymentState = model.PaymentCaptured
			if err := s.applyTransition(txCtx, b, model.BookingConfirmed, "payment captured"); err != nil {
				return err
			}
			confirmed = true
		} else {
			for i := range holds {
				if _, err := s.releaseHold(txCtx, &holds[i], model.HoldExpired, model.SeatHeld, model.SeatAvailable); err != nil {
					return err
				}
			}
			p.Status = model.PaymentStatusFailed
			p.ProcessedAt = &now
			if err := s.payments.Update(txCtx, p); err != nil {
				return err
			}
			if err := s.applyTransition(txCtx, b, model.BookingPendingPayment, "payment failed, seats released"); err != nil {
				return err
			}
		}

		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if confirmed {
		s.publish(ctx, queue.EventBookingConfirmed, result)
		log.Info().Str("reference", reference).Msg("booking confirmed")
	}
	return result, nil
}

// Refund reverses a CONFIRMED booking: the captured payment is
// marked REFUNDED, a processed refund record is written and the
// seats return to sale.  Any other state fails with
// *model.InvalidTransitionError.
func (s *Service) Refund(ctx context.Context, reference, reason string) (*model.Booking, error) {
	var result *model.Booking
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.GetByReferenceForUpdate(txCtx, reference)
		if err != nil {
			return fmt.Errorf("booking %s: %w", reference, err)
		}
		if !b.CanTransition(model.BookingRefunded) {
			return &model.InvalidTransitionError{Reference: b.Reference, From: b.State, To: model.BookingRefunded}
		}

		captured, err := s.payments.CapturedByBooking(txCtx, b.ID)
		if err != nil {
			return err
		}
		if captured == nil {
			return fmt.Errorf("booking %s: captured payment: %w", reference, model.ErrNotFound)
		}

		now := s.clock.Now()
		captured.Status = model.PaymentStatusRefunded
		captured.ProcessedAt = &now
		if err := s.payments.Update(txCtx, captured); err != nil {
			return err
		}
		refund := &model.Refund{
			BookingID:   b.ID,
			PaymentID:   captured.ID,
			Reference:   newRefundReference(),
			AmountCents: captured.AmountCents,
			Status:      model.RefundStatusProcessed,
			Reason:      reason,
			ProcessedAt: &now,
		}
		if err := s.payments.CreateRefund(txCtx, refund); err != nil {
			return err
		}

		if err := s.transitionSeats(txCtx, b.SeatIDs(), model.SeatBooked, model.SeatAvailable); err != nil {
			return err
		}
		b.PaymentState = model.PaymentRefunded
		if err := s.applyTransition(txCtx, b, model.BookingRefunded, "refund processed"); err != nil {
			return err
		}

		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, queue.EventBookingRefunded, result)
	log.Info().Str("reference", reference).Msg("booking refunded")
	return result, nil
}

func targetState(succeed bool) model.BookingState {
	if succeed {
		return model.BookingConfirmed
	}
	return model.BookingPendingPayment
}
