package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// referenceAttempts bounds the collision-check loop for booking
// references.  With 8 hex chars of randomness collisions are
// vanishingly rare; the loop exists so a collision degrades to a
// retry instead of a failed booking.
const referenceAttempts = 5

// uniqueReference generates a booking reference ("BK" + 8 uppercase
// hex chars) that does not collide with an existing booking.
func (s *Service) uniqueReference(ctx context.Context) (string, error) {
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		suffix, err := randomToken(4)
		if err != nil {
			return "", err
		}
		ref := "BK" + strings.ToUpper(suffix)
		taken, err := s.bookings.ReferenceExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !taken {
			return ref, nil
		}
	}
	return "", errors.New("could not generate a unique booking reference")
}

// newPaymentToken returns a payment transaction token,
// "TXN" + 10 uppercase hex chars.
func newPaymentToken() string {
	return "TXN" + uuidHex(10)
}

// newRefundReference returns a refund reference,
// "REF" + 10 uppercase hex chars.
func newRefundReference() string {
	return "REF" + uuidHex(10)
}

func uuidHex(n int) string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:])[:n])
}

// randomToken generates a random hexadecimal string of n bytes
// (2n characters) from crypto/rand.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
