package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the state of one charge attempt
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"  // Attempt created, outcome not yet known
	TransactionStatusSuccess  TransactionStatus = "success"  // Gateway approved the charge
	TransactionStatusFailed   TransactionStatus = "failed"   // Gateway declined or call timed out
	TransactionStatusRefunded TransactionStatus = "refunded" // Successful charge later refunded (terminal)
)

// Transaction is one charge attempt against an installment. Each retry is a
// new row; rows form the audit trail and are never deleted.
type Transaction struct {
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ChargedAt       *time.Time        `json:"charged_at"`
	NextRetryAt     *time.Time        `json:"next_retry_at"`
	ID              string            `json:"id"`
	InstallmentID   string            `json:"installment_id"`
	PaymentMethodID string            `json:"payment_method_id"`
	GatewayProvider string            `json:"gateway_provider"`
	PaymentRef      string            `json:"payment_ref"`
	Message         string            `json:"message"`
	Status          TransactionStatus `json:"status"`
	Amount          decimal.Decimal   `json:"amount"`
	LateFee         decimal.Decimal   `json:"late_fee"`
	RefundAmount    decimal.Decimal   `json:"refund_amount"`
	AttemptNumber   int               `json:"attempt_number"`
}

// IsTerminal returns true if the transaction row can no longer change status.
// FAILED is terminal per row; a retry is a new transaction with the next
// attempt number.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusRefunded
}

// CanBeRefunded returns true if a refund may be applied to this transaction
func (t *Transaction) CanBeRefunded() bool {
	return t.Status == TransactionStatusSuccess
}

// CanApplyOutcome reports whether a charge outcome may still be recorded
func (t *Transaction) CanApplyOutcome() bool {
	return t.Status == TransactionStatusPending
}
