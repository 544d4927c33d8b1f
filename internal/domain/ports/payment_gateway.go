package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ChargeRequest represents a request to charge a stored payment method
type ChargeRequest struct {
	Amount           decimal.Decimal
	Currency         string
	PaymentMethodRef string // Token reference to a stored payment method
	IdempotencyKey   string // Stable per logical attempt, safe for at-least-once delivery
	Metadata         map[string]string
}

// RefundRequest represents a request to return funds for a prior charge
type RefundRequest struct {
	PaymentRef string // Gateway-assigned reference of the original charge
	Amount     decimal.Decimal
	Currency   string
	Reason     string
}

// ChargeResult represents the synchronous outcome of a gateway call
type ChargeResult struct {
	Approved     bool
	PaymentRef   string // Gateway-assigned transaction reference
	ResponseCode string
	Message      string
	Timestamp    time.Time
}

// PaymentGateway defines the charge capability the lifecycle engine consumes.
// Implementations must bound every call with a timeout; a timed-out call is
// reported as a declined result with a timeout response code, never an
// indefinitely pending one.
type PaymentGateway interface {
	// Charge attempts to collect the given amount. Safe to call at-least-once
	// per logical attempt; callers are responsible for not invoking it more
	// than once per installment concurrently.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)

	// Refund returns funds for a previously approved charge
	Refund(ctx context.Context, req *RefundRequest) (*ChargeResult, error)
}
