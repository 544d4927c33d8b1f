package ports

import (
	"context"
	"time"

	"github.com/kevin07696/paylater-service/internal/domain"
)

// TransactionRepository persists charge attempts. The storage layer enforces
// two uniqueness guarantees the lifecycle engine depends on: at most one
// non-terminal (pending or success) transaction per installment, and a unique
// (gateway_provider, payment_ref) pair for webhook reconciliation.
type TransactionRepository interface {
	// CreateAttempt inserts a new PENDING attempt. Returns
	// domain.ErrConcurrentAttempt if the installment already has a pending or
	// successful transaction (uniqueness constraint, not an application check).
	CreateAttempt(ctx context.Context, tx DBTX, txn *domain.Transaction) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Transaction, error)

	// GetByIDForUpdate retrieves a transaction and row-locks it so outcome
	// application is serialized with concurrent reconciliation
	GetByIDForUpdate(ctx context.Context, tx DBTX, id string) (*domain.Transaction, error)

	// GetByProviderRef looks a transaction up by its gateway identity; this is
	// the webhook reconciliation key. Returns domain.ErrTxnNotFound when no
	// local transaction matches.
	GetByProviderRef(ctx context.Context, db DBTX, provider, paymentRef string) (*domain.Transaction, error)

	// Update persists mutable transaction fields (status, payment ref,
	// message, charged_at, fees, refund amount, next_retry_at)
	Update(ctx context.Context, tx DBTX, txn *domain.Transaction) error

	// ListByInstallment lists an installment's attempts in creation order
	ListByInstallment(ctx context.Context, db DBTX, installmentID string) ([]*domain.Transaction, error)

	// ListSuccessfulByPlan lists all SUCCESS/REFUNDED transactions across a
	// plan's installments; used for summary and completion checks
	ListSuccessfulByPlan(ctx context.Context, db DBTX, planID string) ([]*domain.Transaction, error)

	// ListRetryCandidates lists FAILED transactions whose scheduled retry time
	// has arrived and whose attempt count leaves retries available. Rows with
	// a cleared next_retry_at (cancelled plans, exhausted attempts) are never
	// returned.
	ListRetryCandidates(ctx context.Context, db DBTX, asOf time.Time, maxAttempts int, limit int32) ([]*domain.Transaction, error)

	// ListStuckPending lists PENDING transactions older than the cutoff; the
	// retry sweep resolves these to FAILED with a timeout diagnostic
	ListStuckPending(ctx context.Context, db DBTX, olderThan time.Time, limit int32) ([]*domain.Transaction, error)

	// ClearRetrySchedules clears next_retry_at for all FAILED transactions of
	// a plan so a cancelled plan never re-enters the retry sweep
	ClearRetrySchedules(ctx context.Context, tx DBTX, planID string) error
}
