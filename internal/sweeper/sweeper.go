// Package sweeper runs the periodic maintenance job that releases
// expired seat holds.  The sweeper only affects promptness: lazy
// expiry on access keeps the booking state correct even when it is
// delayed or not running at all.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Expirer is the part of the booking service the sweeper drives.
type Expirer interface {
	ExpireHolds(ctx context.Context) (int, error)
	ReleaseOrphanedHolds(ctx context.Context) (int, error)
}

// Sweeper periodically expires bookings whose holds lapsed and
// releases orphaned holds.  Every pass re-checks state under the
// booking row lock, so overlapping passes (or a pass racing payment
// processing) are safe.
type Sweeper struct {
	svc      Expirer
	interval time.Duration

	lastRun time.Time // bookkeeping only, not needed for correctness
}

// New returns a Sweeper invoking svc every interval.
func New(svc Expirer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{svc: svc, interval: interval}
}

// Run sweeps until the context is cancelled.  One pass runs
// immediately so a restart does not wait a full interval with stale
// holds in the inventory.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweeper: stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Sweep runs a single pass and returns how many bookings were
// expired.  It is exported so the administrative expire endpoint and
// tests can trigger a pass on demand.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	s.lastRun = time.Now().UTC()
	expired, err := s.svc.ExpireHolds(ctx)
	if err != nil {
		return 0, err
	}
	if released, err := s.svc.ReleaseOrphanedHolds(ctx); err != nil {
		log.Warn().Err(err).Msg("sweeper: releasing orphaned holds failed")
	} else if released > 0 {
		log.Info().Int("released", released).Msg("sweeper: released orphaned holds")
	}
	return expired, nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		log.Error().Err(err).Msg("sweeper: pass failed")
	}
}
