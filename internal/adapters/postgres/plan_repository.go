package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/domain/ports"
)

// PlanRepository implements ports.PlanRepository
type PlanRepository struct{}

// NewPlanRepository creates a new plan repository
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{}
}

const planColumns = `id, user_id, order_id, principal_amount, currency,
	installments_total, status, paused, payment_method_id, first_charge_ref,
	created_at, updated_at, approved_at, completed_at, canceled_at`

// Create inserts a new plan
func (r *PlanRepository) Create(ctx context.Context, tx ports.DBTX, plan *domain.Plan) error {
	principal, err := decimalToNumeric(plan.PrincipalAmount)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO plans (id, user_id, order_id, principal_amount, currency,
			installments_total, status, paused, payment_method_id,
			first_charge_ref, created_at, updated_at, approved_at,
			completed_at, canceled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		plan.ID,
		plan.UserID,
		plan.OrderID,
		principal,
		string(plan.Currency),
		plan.InstallmentsTotal,
		string(plan.Status),
		plan.Paused,
		plan.PaymentMethodID,
		nullTextPtr(plan.FirstChargeRef),
		plan.CreatedAt,
		plan.UpdatedAt,
		nullTime(plan.ApprovedAt),
		nullTime(plan.CompletedAt),
		nullTime(plan.CanceledAt),
	)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// GetByID retrieves a plan by its ID
func (r *PlanRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Plan, error) {
	row := db.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	return scanPlan(row)
}

// GetByIDForUpdate retrieves a plan and row-locks it for the duration of the
// enclosing transaction
func (r *PlanRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id string) (*domain.Plan, error) {
	row := tx.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1 FOR UPDATE`, id)
	return scanPlan(row)
}

// Update persists mutable plan fields
func (r *PlanRepository) Update(ctx context.Context, tx ports.DBTX, plan *domain.Plan) error {
	tag, err := tx.Exec(ctx, `
		UPDATE plans
		SET status = $2,
			paused = $3,
			payment_method_id = $4,
			first_charge_ref = $5,
			updated_at = $6,
			approved_at = $7,
			completed_at = $8,
			canceled_at = $9
		WHERE id = $1`,
		plan.ID,
		string(plan.Status),
		plan.Paused,
		plan.PaymentMethodID,
		nullTextPtr(plan.FirstChargeRef),
		plan.UpdatedAt,
		nullTime(plan.ApprovedAt),
		nullTime(plan.CompletedAt),
		nullTime(plan.CanceledAt),
	)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound.WithDetail("plan_id", plan.ID)
	}
	return nil
}

// ListByUser lists all plans belonging to a user, newest first
func (r *PlanRepository) ListByUser(ctx context.Context, db ports.DBTX, userID int64) ([]*domain.Plan, error) {
	rows, err := db.Query(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans by user: %w", err)
	}
	defer rows.Close()

	return scanPlans(rows)
}

// ListActiveByUser lists a user's plans still collecting payments
func (r *PlanRepository) ListActiveByUser(ctx context.Context, db ports.DBTX, userID int64) ([]*domain.Plan, error) {
	rows, err := db.Query(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE user_id = $1
		  AND status IN ('pending', 'active', 'partially_paid')
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active plans by user: %w", err)
	}
	defer rows.Close()

	return scanPlans(rows)
}

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var (
		p         domain.Plan
		principal pgtype.Numeric
		currency  string
		status    string
		firstRef  pgtype.Text
		approved  pgtype.Timestamptz
		completed pgtype.Timestamptz
		canceled  pgtype.Timestamptz
	)

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.OrderID,
		&principal,
		&currency,
		&p.InstallmentsTotal,
		&status,
		&p.Paused,
		&p.PaymentMethodID,
		&firstRef,
		&p.CreatedAt,
		&p.UpdatedAt,
		&approved,
		&completed,
		&canceled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	amount, err := pgNumericToDecimal(principal)
	if err != nil {
		return nil, fmt.Errorf("plan principal: %w", err)
	}

	p.PrincipalAmount = amount
	p.Currency = domain.Currency(currency)
	p.Status = domain.PlanStatus(status)
	p.FirstChargeRef = textPtr(firstRef)
	p.ApprovedAt = timePtr(approved)
	p.CompletedAt = timePtr(completed)
	p.CanceledAt = timePtr(canceled)
	return &p, nil
}

func scanPlans(rows pgx.Rows) ([]*domain.Plan, error) {
	var plans []*domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}
