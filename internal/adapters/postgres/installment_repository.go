package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/domain/ports"
)

// InstallmentRepository implements ports.InstallmentRepository
type InstallmentRepository struct{}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository() *InstallmentRepository {
	return &InstallmentRepository{}
}

const installmentColumns = `id, plan_id, installment_number, due_date,
	planned_amount, currency, created_at, updated_at`

// CreateBatch inserts all installments of a plan
func (r *InstallmentRepository) CreateBatch(ctx context.Context, tx ports.DBTX, installments []*domain.Installment) error {
	for _, inst := range installments {
		amount, err := decimalToNumeric(inst.PlannedAmount)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO installments (id, plan_id, installment_number, due_date,
				planned_amount, currency, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			inst.ID,
			inst.PlanID,
			inst.Number,
			inst.DueDate,
			amount,
			string(inst.Currency),
			inst.CreatedAt,
			inst.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("create installment %d: %w", inst.Number, err)
		}
	}
	return nil
}

// GetByID retrieves an installment by its ID
func (r *InstallmentRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Installment, error) {
	row := db.QueryRow(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = $1`, id)
	return scanInstallment(row)
}

// ListByPlan lists a plan's installments ordered by installment number
func (r *InstallmentRepository) ListByPlan(ctx context.Context, db ports.DBTX, planID string) ([]*domain.Installment, error) {
	rows, err := db.Query(ctx, `
		SELECT `+installmentColumns+`
		FROM installments
		WHERE plan_id = $1
		ORDER BY installment_number`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("list installments by plan: %w", err)
	}
	defer rows.Close()

	return scanInstallments(rows)
}

// ListDueForCharge lists due installments ready for their first charge
// attempt. The query enforces the scheduling rules in one place: the plan
// must still be collecting (and not paused), the installment must have no
// attempt at all, and every earlier installment of the plan must be settled,
// so installment N+1 never charges before N.
func (r *InstallmentRepository) ListDueForCharge(ctx context.Context, db ports.DBTX, asOf time.Time, limit int32) ([]*domain.Installment, error) {
	rows, err := db.Query(ctx, `
		SELECT i.id, i.plan_id, i.installment_number, i.due_date,
			i.planned_amount, i.currency, i.created_at, i.updated_at
		FROM installments i
		JOIN plans p ON p.id = i.plan_id
		WHERE i.due_date <= $1
		  AND p.status IN ('pending', 'active', 'partially_paid')
		  AND NOT p.paused
		  AND NOT EXISTS (
			SELECT 1 FROM transactions t
			WHERE t.installment_id = i.id
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM installments prev
			WHERE prev.plan_id = i.plan_id
			  AND prev.installment_number < i.installment_number
			  AND NOT EXISTS (
				SELECT 1 FROM transactions pt
				WHERE pt.installment_id = prev.id
				  AND pt.status IN ('success', 'refunded')
			  )
		  )
		ORDER BY i.due_date, i.plan_id, i.installment_number
		LIMIT $2`,
		asOf,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due installments: %w", err)
	}
	defer rows.Close()

	return scanInstallments(rows)
}

func scanInstallment(row pgx.Row) (*domain.Installment, error) {
	var (
		inst     domain.Installment
		amount   pgtype.Numeric
		currency string
	)

	err := row.Scan(
		&inst.ID,
		&inst.PlanID,
		&inst.Number,
		&inst.DueDate,
		&amount,
		&currency,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInstallmentNotFound
		}
		return nil, fmt.Errorf("scan installment: %w", err)
	}

	planned, err := pgNumericToDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("installment amount: %w", err)
	}

	inst.PlannedAmount = planned
	inst.Currency = domain.Currency(currency)
	return &inst, nil
}

func scanInstallments(rows pgx.Rows) ([]*domain.Installment, error) {
	var installments []*domain.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installments: %w", err)
	}
	return installments, nil
}
