package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/domain/ports"
)

// uniqueViolation is the postgres error code for unique constraint violations
const uniqueViolation = "23505"

// liveAttemptIndex is the partial unique index allowing at most one pending
// or successful transaction per installment
const liveAttemptIndex = "uq_transactions_live_per_installment"

// TransactionRepository implements ports.TransactionRepository
type TransactionRepository struct{}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

const transactionColumns = `id, installment_id, attempt_number, status, amount,
	late_fee, refund_amount, payment_method_id, gateway_provider, payment_ref,
	message, charged_at, next_retry_at, created_at, updated_at`

// CreateAttempt inserts a new PENDING attempt. The live-attempt index turns a
// race between two sweeps into domain.ErrConcurrentAttempt for the loser.
func (r *TransactionRepository) CreateAttempt(ctx context.Context, tx ports.DBTX, txn *domain.Transaction) error {
	amount, err := decimalToNumeric(txn.Amount)
	if err != nil {
		return err
	}
	lateFee, err := decimalToNumeric(txn.LateFee)
	if err != nil {
		return err
	}
	refund, err := decimalToNumeric(txn.RefundAmount)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (id, installment_id, attempt_number, status,
			amount, late_fee, refund_amount, payment_method_id,
			gateway_provider, payment_ref, message, charged_at, next_retry_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		txn.ID,
		txn.InstallmentID,
		txn.AttemptNumber,
		string(txn.Status),
		amount,
		lateFee,
		refund,
		txn.PaymentMethodID,
		txn.GatewayProvider,
		nullText(txn.PaymentRef),
		nullText(txn.Message),
		nullTime(txn.ChargedAt),
		nullTime(txn.NextRetryAt),
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == liveAttemptIndex {
			return domain.ErrConcurrentAttempt.WithDetail("installment_id", txn.InstallmentID)
		}
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

// GetByIDForUpdate retrieves a transaction and row-locks it
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id string) (*domain.Transaction, error) {
	row := tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	return scanTransaction(row)
}

// GetByProviderRef looks a transaction up by its gateway identity
func (r *TransactionRepository) GetByProviderRef(ctx context.Context, db ports.DBTX, provider, paymentRef string) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE gateway_provider = $1 AND payment_ref = $2`,
		provider,
		paymentRef,
	)
	return scanTransaction(row)
}

// Update persists mutable transaction fields
func (r *TransactionRepository) Update(ctx context.Context, tx ports.DBTX, txn *domain.Transaction) error {
	refund, err := decimalToNumeric(txn.RefundAmount)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = $2,
			refund_amount = $3,
			payment_ref = $4,
			message = $5,
			charged_at = $6,
			next_retry_at = $7,
			updated_at = $8
		WHERE id = $1`,
		txn.ID,
		string(txn.Status),
		refund,
		nullText(txn.PaymentRef),
		nullText(txn.Message),
		nullTime(txn.ChargedAt),
		nullTime(txn.NextRetryAt),
		txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTxnNotFound.WithDetail("transaction_id", txn.ID)
	}
	return nil
}

// ListByInstallment lists an installment's attempts in creation order
func (r *TransactionRepository) ListByInstallment(ctx context.Context, db ports.DBTX, installmentID string) ([]*domain.Transaction, error) {
	rows, err := db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE installment_id = $1
		ORDER BY attempt_number`,
		installmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions by installment: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListSuccessfulByPlan lists all settled transactions across a plan's
// installments
func (r *TransactionRepository) ListSuccessfulByPlan(ctx context.Context, db ports.DBTX, planID string) ([]*domain.Transaction, error) {
	rows, err := db.Query(ctx, `
		SELECT t.id, t.installment_id, t.attempt_number, t.status, t.amount,
			t.late_fee, t.refund_amount, t.payment_method_id,
			t.gateway_provider, t.payment_ref, t.message, t.charged_at,
			t.next_retry_at, t.created_at, t.updated_at
		FROM transactions t
		JOIN installments i ON i.id = t.installment_id
		WHERE i.plan_id = $1
		  AND t.status IN ('success', 'refunded')
		ORDER BY i.installment_number`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("list successful transactions by plan: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListRetryCandidates lists failed attempts whose scheduled retry has arrived
func (r *TransactionRepository) ListRetryCandidates(ctx context.Context, db ports.DBTX, asOf time.Time, maxAttempts int, limit int32) ([]*domain.Transaction, error) {
	rows, err := db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = 'failed'
		  AND attempt_number < $2
		  AND next_retry_at IS NOT NULL
		  AND next_retry_at <= $1
		ORDER BY next_retry_at
		LIMIT $3`,
		asOf,
		maxAttempts,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list retry candidates: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListStuckPending lists PENDING attempts created before the cutoff
func (r *TransactionRepository) ListStuckPending(ctx context.Context, db ports.DBTX, olderThan time.Time, limit int32) ([]*domain.Transaction, error) {
	rows, err := db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = 'pending'
		  AND created_at <= $1
		ORDER BY created_at
		LIMIT $2`,
		olderThan,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stuck pending: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ClearRetrySchedules clears next_retry_at for all failed attempts of a plan
func (r *TransactionRepository) ClearRetrySchedules(ctx context.Context, tx ports.DBTX, planID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE transactions t
		SET next_retry_at = NULL,
			updated_at = now()
		FROM installments i
		WHERE t.installment_id = i.id
		  AND i.plan_id = $1
		  AND t.status = 'failed'
		  AND t.next_retry_at IS NOT NULL`,
		planID,
	)
	if err != nil {
		return fmt.Errorf("clear retry schedules: %w", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn        domain.Transaction
		status     string
		amount     pgtype.Numeric
		lateFee    pgtype.Numeric
		refund     pgtype.Numeric
		paymentRef pgtype.Text
		message    pgtype.Text
		chargedAt  pgtype.Timestamptz
		nextRetry  pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.ID,
		&txn.InstallmentID,
		&txn.AttemptNumber,
		&status,
		&amount,
		&lateFee,
		&refund,
		&txn.PaymentMethodID,
		&txn.GatewayProvider,
		&paymentRef,
		&message,
		&chargedAt,
		&nextRetry,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTxnNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if txn.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, fmt.Errorf("transaction amount: %w", err)
	}
	if txn.LateFee, err = pgNumericToDecimal(lateFee); err != nil {
		return nil, fmt.Errorf("transaction late fee: %w", err)
	}
	if txn.RefundAmount, err = pgNumericToDecimal(refund); err != nil {
		return nil, fmt.Errorf("transaction refund amount: %w", err)
	}

	txn.Status = domain.TransactionStatus(status)
	txn.PaymentRef = textValue(paymentRef)
	txn.Message = textValue(message)
	txn.ChargedAt = timePtr(chargedAt)
	txn.NextRetryAt = timePtr(nextRetry)
	return &txn, nil
}

func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}
