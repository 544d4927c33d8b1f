package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanStatus represents the lifecycle state of a pay-later plan
type PlanStatus string

const (
	PlanStatusPending       PlanStatus = "pending"        // Created, first installment not yet settled
	PlanStatusActive        PlanStatus = "active"         // First installment paid
	PlanStatusPartiallyPaid PlanStatus = "partially_paid" // Some but not all installments paid
	PlanStatusCompleted     PlanStatus = "completed"      // All installments paid (terminal)
	PlanStatusCancelled     PlanStatus = "cancelled"      // Cancelled by user or operator (terminal)
)

// Currency is an ISO-4217 currency code supported for plans
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyJPY Currency = "JPY"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
	CurrencyVND Currency = "VND"
)

// IsSupported returns true if the currency is one the service accepts
func (c Currency) IsSupported() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyJPY, CurrencyGBP, CurrencyCHF, CurrencyVND:
		return true
	}
	return false
}

// Plan is an agreement to pay a principal amount over a fixed number of
// installments. Plans are created once at checkout and mutated only through
// the transitions below; they are never physically deleted.
type Plan struct {
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ApprovedAt        *time.Time      `json:"approved_at"`
	CompletedAt       *time.Time      `json:"completed_at"`
	CanceledAt        *time.Time      `json:"canceled_at"`
	FirstChargeRef    *string         `json:"first_charge_ref"`
	ID                string          `json:"id"`
	OrderID           string          `json:"order_id"`
	PaymentMethodID   string          `json:"payment_method_id"`
	Currency          Currency        `json:"currency"`
	Status            PlanStatus      `json:"status"`
	PrincipalAmount   decimal.Decimal `json:"principal_amount"`
	UserID            int64           `json:"user_id"`
	InstallmentsTotal int             `json:"installments_total"`
	Paused            bool            `json:"paused"`
}

// IsTerminal returns true if no transition leaves the current status
func (p *Plan) IsTerminal() bool {
	return p.Status == PlanStatusCompleted || p.Status == PlanStatusCancelled
}

// CanBeCancelled returns true if the plan may transition to CANCELLED
func (p *Plan) CanBeCancelled() bool {
	return !p.IsTerminal()
}

// CanBePaused returns true if scheduling for the plan may be suspended.
// Pausing does not alter Status; it is tracked as a separate flag.
func (p *Plan) CanBePaused() bool {
	return !p.Paused &&
		(p.Status == PlanStatusActive || p.Status == PlanStatusPartiallyPaid)
}

// CanBeResumed returns true if a paused plan may resume scheduling
func (p *Plan) CanBeResumed() bool {
	return p.Paused && !p.IsTerminal()
}

// IsChargeable returns true if the scheduler may attempt charges for the plan
func (p *Plan) IsChargeable() bool {
	if p.Paused {
		return false
	}
	switch p.Status {
	case PlanStatusPending, PlanStatusActive, PlanStatusPartiallyPaid:
		return true
	}
	return false
}

// CanTransitionTo reports whether status may legally change to target
func (p *Plan) CanTransitionTo(target PlanStatus) bool {
	if p.IsTerminal() {
		return false
	}
	switch target {
	case PlanStatusActive:
		return p.Status == PlanStatusPending || p.Status == PlanStatusPartiallyPaid
	case PlanStatusPartiallyPaid:
		return p.Status == PlanStatusActive
	case PlanStatusCompleted:
		return p.Status == PlanStatusActive || p.Status == PlanStatusPartiallyPaid
	case PlanStatusCancelled:
		return true
	}
	return false
}

// SplitPrincipal divides a principal into n 2-decimal parts that sum exactly
// to the principal. Each part starts at the floor of the equal share; the
// leftover cents go to the earliest parts, one cent each. 100.01 over 3
// yields 33.34, 33.34, 33.33. No part is ever negative, even when the equal
// share rounds below one cent.
func SplitPrincipal(principal decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	count := decimal.NewFromInt(int64(n))
	base := principal.Div(count).RoundDown(2)
	cent := decimal.New(1, -2)
	leftover := int(principal.Sub(base.Mul(count)).Div(cent).IntPart())

	parts := make([]decimal.Decimal, n)
	for i := range parts {
		parts[i] = base
		if i < leftover {
			parts[i] = base.Add(cent)
		}
	}
	return parts
}
