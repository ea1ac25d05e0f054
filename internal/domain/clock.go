package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze run timestamps.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for run timestamps. Pass nil to reset to
// real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current UTC time from the package clock.
func Now() time.Time {
	return clock.Now().UTC()
}
