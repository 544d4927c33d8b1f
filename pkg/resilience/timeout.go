package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the application's timeout hierarchy
//
// Hierarchy (from outermost to innermost):
//
//	Cron sweep (5m) / HTTP handler (60s)
//	  ↓
//	Service operation (50s)
//	  ↓
//	Gateway charge or refund (30s)
//	  ↓
//	Database query (statement timeouts in the postgres adapter)
//
// Each layer finishes before its parent times out, so a slow gateway call
// surfaces as a charge timeout rather than a cascading sweep failure.
type TimeoutConfig struct {
	HTTPHandler time.Duration // Overall request timeout
	CronSweep   time.Duration // One full due or retry sweep
	Service     time.Duration // One service operation (must be < HTTPHandler)
	Gateway     time.Duration // One outbound gateway call (must be < Service)
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 60 * time.Second,
		CronSweep:   5 * time.Minute,
		Service:     50 * time.Second,
		Gateway:     30 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 5 * time.Second,
		CronSweep:   30 * time.Second,
		Service:     4 * time.Second,
		Gateway:     2 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// SweepContext creates a context with timeout for one scheduler sweep
func (tc *TimeoutConfig) SweepContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.CronSweep)
}

// ServiceContext creates a context with timeout for service layer operations
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// GatewayContext creates a context for outbound payment gateway calls
func (tc *TimeoutConfig) GatewayContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Gateway)
}
