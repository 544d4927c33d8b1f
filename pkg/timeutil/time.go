package timeutil

import "time"

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// AddMonths advances t by the given number of calendar months; installment due
// dates are spaced this way
func AddMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0).UTC()
}

// SystemClock is the production clock; it satisfies the Clock port used by
// the lifecycle and scheduling services
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return Now()
}
