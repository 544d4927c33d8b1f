package mocks

import "time"

// MockClock is a fixed clock for testing time-dependent behavior
type MockClock struct {
	Current time.Time
}

// NewMockClock creates a clock frozen at the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{Current: t}
}

// Now returns the frozen time
func (c *MockClock) Now() time.Time {
	return c.Current
}

// Advance moves the clock forward
func (c *MockClock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}
