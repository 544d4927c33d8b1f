package retry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/services/retry"
)

func failedAttempt(attempt int, updatedAt time.Time) *domain.Transaction {
	return &domain.Transaction{
		Status:        domain.TransactionStatusFailed,
		AttemptNumber: attempt,
		UpdatedAt:     updatedAt,
	}
}

func TestBackoffFor_DoublesPerAttempt(t *testing.T) {
	policy := retry.DefaultPolicy()

	assert.Equal(t, 1*time.Hour, policy.BackoffFor(1))
	assert.Equal(t, 2*time.Hour, policy.BackoffFor(2))
	assert.Equal(t, 4*time.Hour, policy.BackoffFor(3))
	assert.Equal(t, 8*time.Hour, policy.BackoffFor(4))
}

func TestBackoffFor_CappedAtMax(t *testing.T) {
	policy := retry.DefaultPolicy()

	assert.Equal(t, 24*time.Hour, policy.BackoffFor(6))  // 32h uncapped
	assert.Equal(t, 24*time.Hour, policy.BackoffFor(10))
}

func TestNextRetryTime(t *testing.T) {
	policy := retry.DefaultPolicy()
	failedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		attempt int
		delay   time.Duration
	}{
		{1, 1 * time.Hour},
		{2, 2 * time.Hour},
		{3, 4 * time.Hour},
	}

	for _, tt := range tests {
		txn := failedAttempt(tt.attempt, failedAt)
		assert.Equal(t, failedAt.Add(tt.delay), policy.NextRetryTime(txn), "attempt %d", tt.attempt)
	}
}

func TestAttemptsExhausted_NoFourthAttempt(t *testing.T) {
	policy := retry.DefaultPolicy()
	now := time.Now()

	assert.False(t, policy.AttemptsExhausted(failedAttempt(1, now)))
	assert.False(t, policy.AttemptsExhausted(failedAttempt(2, now)))
	assert.True(t, policy.AttemptsExhausted(failedAttempt(3, now)))
	assert.True(t, policy.AttemptsExhausted(failedAttempt(4, now)))
}

func TestRetryable_OnlyFailedTransactions(t *testing.T) {
	policy := retry.DefaultPolicy()
	now := time.Now()
	old := now.Add(-2 * time.Hour)

	assert.True(t, policy.Retryable(failedAttempt(1, old), now))

	pending := &domain.Transaction{Status: domain.TransactionStatusPending, AttemptNumber: 1, UpdatedAt: old}
	assert.False(t, policy.Retryable(pending, now))

	success := &domain.Transaction{Status: domain.TransactionStatusSuccess, AttemptNumber: 1, UpdatedAt: old}
	assert.False(t, policy.Retryable(success, now))

	refunded := &domain.Transaction{Status: domain.TransactionStatusRefunded, AttemptNumber: 1, UpdatedAt: old}
	assert.False(t, policy.Retryable(refunded, now))
}

func TestRetryable_RespectsMinBackoff(t *testing.T) {
	policy := retry.DefaultPolicy()
	now := time.Now()

	assert.False(t, policy.Retryable(failedAttempt(1, now.Add(-30*time.Minute)), now))
	assert.True(t, policy.Retryable(failedAttempt(1, now.Add(-time.Hour)), now))
}

func TestRetryable_ExhaustedAttemptsNeverRetry(t *testing.T) {
	policy := retry.DefaultPolicy()
	now := time.Now()

	assert.False(t, policy.Retryable(failedAttempt(3, now.Add(-48*time.Hour)), now))
}

func TestRetryCount(t *testing.T) {
	policy := retry.DefaultPolicy()
	now := time.Now()

	assert.Equal(t, 0, policy.RetryCount(failedAttempt(1, now)))
	assert.Equal(t, 1, policy.RetryCount(failedAttempt(2, now)))
	assert.Equal(t, 2, policy.RetryCount(failedAttempt(3, now)))
}
