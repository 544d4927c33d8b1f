package ports

import (
	"context"
	"time"

	"github.com/kevin07696/paylater-service/internal/domain"
)

// InstallmentRepository persists plan installments
type InstallmentRepository interface {
	// CreateBatch inserts all installments of a plan
	CreateBatch(ctx context.Context, tx DBTX, installments []*domain.Installment) error

	// GetByID retrieves an installment by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Installment, error)

	// ListByPlan lists a plan's installments ordered by installment number
	ListByPlan(ctx context.Context, db DBTX, planID string) ([]*domain.Installment, error)

	// ListDueForCharge lists installments whose due date has arrived, whose
	// plan is chargeable (not paused, not terminal), which have no transaction
	// yet, and whose earlier siblings have all settled. This is the due-sweep
	// work query; ordering guarantees installment N+1 never charges before N.
	ListDueForCharge(ctx context.Context, db DBTX, asOf time.Time, limit int32) ([]*domain.Installment, error)
}
