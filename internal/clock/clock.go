// Package clock abstracts the current time so hold-expiry logic can
// be tested without sleeping.
package clock

import "time"

// Clock supplies the current instant in UTC.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a clock pinned to a settable instant, for tests.  Advance
// moves it forward; the zero value is not usable, use NewFixed.
type Fixed struct {
	now time.Time
}

// NewFixed returns a clock that reports the given instant until
// advanced.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
