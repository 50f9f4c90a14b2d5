package clock

import "time"

// Clock allows injecting time in domain/services. All deadlines in the hold
// engine compare against this single source, never client-supplied time.
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

// Fixed is a clock pinned to an instant, movable only via Advance.
type Fixed struct {
	now time.Time
}

// NewFixed returns a clock that returns the given instant until advanced
// (useful for tests).
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
