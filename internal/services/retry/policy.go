package retry

import (
	"time"

	"github.com/kevin07696/paylater-service/internal/domain"
)

// Policy decides whether and when a failed charge attempt may be retried.
// Decisions are pure functions over the transaction's own history; the policy
// performs no I/O and holds no clock.
type Policy struct {
	MaxAttempts int           // Total attempts permitted, first charge included
	MinBackoff  time.Duration // Minimum gap between consecutive attempts
	MaxBackoff  time.Duration // Ceiling on the exponential backoff
}

// DefaultPolicy returns the production retry policy: 3 attempts total, at
// least one hour between attempts, backoff 1h, 2h, 4h capped at 24h.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		MinBackoff:  time.Hour,
		MaxBackoff:  24 * time.Hour,
	}
}

// RetryCount returns how many retries the transaction represents; the first
// attempt is not a retry
func (p Policy) RetryCount(txn *domain.Transaction) int {
	if txn.AttemptNumber <= 1 {
		return 0
	}
	return txn.AttemptNumber - 1
}

// AttemptsExhausted returns true when no further attempts are permitted
func (p Policy) AttemptsExhausted(txn *domain.Transaction) bool {
	return txn.AttemptNumber >= p.MaxAttempts
}

// Retryable reports whether a new attempt may be made now. Only FAILED
// transactions are candidates: PENDING means an attempt is still in flight
// and SUCCESS/REFUNDED need no retry.
func (p Policy) Retryable(txn *domain.Transaction, now time.Time) bool {
	if txn.Status != domain.TransactionStatusFailed {
		return false
	}
	if p.AttemptsExhausted(txn) {
		return false
	}
	return now.Sub(txn.UpdatedAt) >= p.MinBackoff
}

// NextRetryTime returns when the next attempt becomes eligible:
// lastUpdate + 2^(attempt-1) hours, so consecutive failures wait 1h, 2h, 4h.
// The delay is capped at MaxBackoff.
func (p Policy) NextRetryTime(txn *domain.Transaction) time.Time {
	return txn.UpdatedAt.Add(p.BackoffFor(txn.AttemptNumber))
}

// BackoffFor returns the delay imposed after the given attempt number fails
func (p Policy) BackoffFor(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}
	delay := time.Hour * time.Duration(1<<(attemptNumber-1))
	if delay > p.MaxBackoff {
		delay = p.MaxBackoff
	}
	return delay
}
