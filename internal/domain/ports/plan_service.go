package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/paylater-service/internal/domain"
)

// CheckoutRequest creates a plan from an order checkout
type CheckoutRequest struct {
	OrderID         string
	UserID          int64
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
	Installments    int // 0 selects the configured default
}

// PlanView is the external representation of a plan
type PlanView struct {
	CreatedAt          time.Time       `json:"created_at"`
	ApprovedAt         *time.Time      `json:"approved_at"`
	CompletedAt        *time.Time      `json:"completed_at"`
	CanceledAt         *time.Time      `json:"canceled_at"`
	ID                 string          `json:"id"`
	OrderID            string          `json:"order_id"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	FirstChargeMessage string          `json:"first_charge_message,omitempty"`
	PrincipalAmount    decimal.Decimal `json:"principal_amount"`
	UserID             int64           `json:"user_id"`
	InstallmentsTotal  int             `json:"installments_total"`
	Paused             bool            `json:"paused"`
	// FirstChargeDeclined is set when the synchronous checkout charge did not
	// settle; the plan remains pending and the attempt enters the retry path.
	FirstChargeDeclined bool `json:"first_charge_declined"`
}

// PlanSummary aggregates payment progress for a plan
type PlanSummary struct {
	NextDueDate           *time.Time      `json:"next_due_date"`
	NextDueAmount         *decimal.Decimal `json:"next_due_amount"`
	PlanID                string          `json:"plan_id"`
	Status                string          `json:"status"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	PaidAmount            decimal.Decimal `json:"paid_amount"`
	RemainingAmount       decimal.Decimal `json:"remaining_amount"`
	TotalInstallments     int             `json:"total_installments"`
	PaidInstallments      int             `json:"paid_installments"`
	RemainingInstallments int             `json:"remaining_installments"`
}

// ChargeOutcome is the terminal result of one charge attempt, whether it was
// observed synchronously or reported later by webhook
type ChargeOutcome struct {
	Approved     bool
	TimedOut     bool
	PaymentRef   string
	ResponseCode string
	Message      string
}

// PlanService owns the plan/installment/transaction state machines
type PlanService interface {
	// Checkout creates a plan with its installments and synchronously charges
	// the first installment
	Checkout(ctx context.Context, req CheckoutRequest) (*PlanView, error)

	// GetPlan retrieves a plan view by ID
	GetPlan(ctx context.Context, planID string) (*PlanView, error)

	// ListUserPlans lists all plans for a user
	ListUserPlans(ctx context.Context, userID int64) ([]*PlanView, error)

	// ListActiveUserPlans lists a user's plans still collecting payments
	ListActiveUserPlans(ctx context.Context, userID int64) ([]*PlanView, error)

	// UpdatePlanStatus transitions a plan to the target status if legal
	UpdatePlanStatus(ctx context.Context, planID string, target domain.PlanStatus) error

	// Cancel cancels a plan and clears its pending retry schedules
	Cancel(ctx context.Context, planID, reason string) error

	// Pause suspends scheduling for a plan without changing its status
	Pause(ctx context.Context, planID, reason string) error

	// Resume re-enables scheduling for a paused plan
	Resume(ctx context.Context, planID string) error

	// UpdatePaymentMethod changes the method future attempts will charge
	UpdatePaymentMethod(ctx context.Context, planID, paymentMethodID string) error

	// Summary computes payment progress for a plan
	Summary(ctx context.Context, planID string) (*PlanSummary, error)

	// RecordChargeOutcome applies a charge outcome to a transaction and
	// advances the owning plan. Idempotent: re-applying the outcome a
	// transaction already carries is a no-op.
	RecordChargeOutcome(ctx context.Context, transactionID string, outcome ChargeOutcome) error

	// Refund sends an operator-initiated refund for a settled charge to the
	// gateway and records it on the transaction
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) error
}
