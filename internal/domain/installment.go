package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one scheduled partial payment within a plan. Installments are
// created together at plan creation with contiguous 1-based numbers and are
// never reordered or deleted.
type Installment struct {
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DueDate       time.Time       `json:"due_date"`
	ID            string          `json:"id"`
	PlanID        string          `json:"plan_id"`
	Currency      Currency        `json:"currency"`
	PlannedAmount decimal.Decimal `json:"planned_amount"`
	Number        int             `json:"installment_number"`
}

// IsDue returns true if the installment's due date has arrived
func (i *Installment) IsDue(now time.Time) bool {
	return !i.DueDate.After(now)
}
