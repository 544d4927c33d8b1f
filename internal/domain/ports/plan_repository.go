package ports

import (
	"context"

	"github.com/kevin07696/paylater-service/internal/domain"
)

// PlanRepository persists pay-later plans
type PlanRepository interface {
	// Create inserts a new plan
	Create(ctx context.Context, tx DBTX, plan *domain.Plan) error

	// GetByID retrieves a plan by its ID
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Plan, error)

	// GetByIDForUpdate retrieves a plan and row-locks it for the duration of
	// the enclosing transaction, serializing state transitions per plan
	GetByIDForUpdate(ctx context.Context, tx DBTX, id string) (*domain.Plan, error)

	// Update persists mutable plan fields (status, paused flag, timestamps,
	// payment method, first charge reference)
	Update(ctx context.Context, tx DBTX, plan *domain.Plan) error

	// ListByUser lists all plans belonging to a user, newest first
	ListByUser(ctx context.Context, db DBTX, userID int64) ([]*domain.Plan, error)

	// ListActiveByUser lists a user's plans still collecting payments
	ListActiveByUser(ctx context.Context, db DBTX, userID int64) ([]*domain.Plan, error)
}
