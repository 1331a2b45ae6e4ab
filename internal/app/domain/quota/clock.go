package quota

import "time"

// Clock abstracts wall-clock time so month-rollover logic is testable
// without touching the system clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns the production clock (UTC).
func NewSystemClock() Clock {
	return systemClock{}
}

// sameCalendarMonth reports whether a and b fall in the same month of the
// same year.
func sameCalendarMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
