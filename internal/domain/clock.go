package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze "now" via SetClock.
var clock = clockwork.NewRealClock()

// location is the wall-clock zone regulations and peak hours are expressed in.
var location = time.UTC

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// SetLocation sets the local time zone used by Now. Pass nil to reset to UTC.
func SetLocation(loc *time.Location) {
	if loc == nil {
		location = time.UTC
		return
	}
	location = loc
}

// Now returns the current time in the configured local zone.
func Now() time.Time {
	return clock.Now().In(location)
}

// Weekday returns t's day of week with Monday as 0 and Sunday as 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
