package webhook

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/domain/ports"
	"github.com/kevin07696/paylater-service/pkg/observability"
)

// Event kinds reported by payment gateways
const (
	EventSuccess = "success"
	EventFailure = "failure"
	EventRefund  = "refund"
)

// Event is one gateway notification, already verified and decoded by the
// transport layer. (Provider, PaymentRef) is the reconciliation key.
type Event struct {
	Provider   string
	PaymentRef string
	Kind       string
	Message    string
	Amount     decimal.Decimal // Refund amount, unused for other kinds
}

// OutcomeRecorder is the slice of the plan service the reconciler applies
// success and failure events through, so webhook-driven settlement advances
// plans exactly like scheduler-driven settlement.
type OutcomeRecorder interface {
	RecordChargeOutcome(ctx context.Context, transactionID string, outcome ports.ChargeOutcome) error
}

// Reconciler folds gateway webhook events into the local transaction record.
// Events are applied idempotently: gateways redeliver, and redelivery of an
// already-applied event is a no-op.
type Reconciler struct {
	db       ports.DBPort
	txns     ports.TransactionRepository
	recorder OutcomeRecorder
	clock    ports.Clock
	logger   ports.Logger
}

// NewReconciler creates a webhook reconciler
func NewReconciler(
	db ports.DBPort,
	txns ports.TransactionRepository,
	recorder OutcomeRecorder,
	clock ports.Clock,
	logger ports.Logger,
) *Reconciler {
	return &Reconciler{
		db:       db,
		txns:     txns,
		recorder: recorder,
		clock:    clock,
		logger:   logger,
	}
}

// ApplyEvent reconciles one gateway event. Events referencing no local
// transaction are logged and dropped; a gateway may notify about payments
// this service never initiated.
func (r *Reconciler) ApplyEvent(ctx context.Context, event Event) error {
	txn, err := r.txns.GetByProviderRef(ctx, r.db.GetDB(), event.Provider, event.PaymentRef)
	if err != nil {
		if domain.IsNotFoundError(err) {
			observability.RecordWebhookEvent(event.Kind, "ignored")
			r.logger.Warn("webhook event for unknown payment ignored",
				ports.String("provider", event.Provider),
				ports.String("payment_ref", event.PaymentRef),
				ports.String("kind", event.Kind))
			return nil
		}
		return err
	}

	switch event.Kind {
	case EventSuccess:
		return r.applySuccess(ctx, txn, event)
	case EventFailure:
		return r.applyFailure(ctx, txn, event)
	case EventRefund:
		return r.applyRefund(ctx, txn, event)
	default:
		observability.RecordWebhookEvent(event.Kind, "ignored")
		r.logger.Warn("webhook event of unknown kind ignored",
			ports.String("provider", event.Provider),
			ports.String("payment_ref", event.PaymentRef),
			ports.String("kind", event.Kind))
		return nil
	}
}

func (r *Reconciler) applySuccess(ctx context.Context, txn *domain.Transaction, event Event) error {
	if txn.Status == domain.TransactionStatusSuccess || txn.Status == domain.TransactionStatusRefunded {
		observability.RecordWebhookEvent(EventSuccess, "duplicate")
		return nil
	}

	outcome := ports.ChargeOutcome{
		Approved:   true,
		PaymentRef: event.PaymentRef,
		Message:    event.Message,
	}
	if err := r.recorder.RecordChargeOutcome(ctx, txn.ID, outcome); err != nil {
		observability.RecordWebhookEvent(EventSuccess, "rejected")
		return err
	}

	observability.RecordWebhookEvent(EventSuccess, "applied")
	r.logger.Info("webhook settled charge",
		ports.String("transaction_id", txn.ID),
		ports.String("payment_ref", event.PaymentRef),
		ports.String("previous_status", string(txn.Status)))
	return nil
}

func (r *Reconciler) applyFailure(ctx context.Context, txn *domain.Transaction, event Event) error {
	// A failure event for a charge we already settled means the gateway and
	// local record disagree; keep the local state and drop the event.
	if txn.IsTerminal() {
		if txn.Status == domain.TransactionStatusFailed {
			observability.RecordWebhookEvent(EventFailure, "duplicate")
		} else {
			observability.RecordWebhookEvent(EventFailure, "ignored")
			r.logger.Warn("failure event for settled charge ignored",
				ports.String("transaction_id", txn.ID),
				ports.String("payment_ref", event.PaymentRef),
				ports.String("status", string(txn.Status)))
		}
		return nil
	}

	outcome := ports.ChargeOutcome{
		Approved:   false,
		PaymentRef: event.PaymentRef,
		Message:    event.Message,
	}
	if err := r.recorder.RecordChargeOutcome(ctx, txn.ID, outcome); err != nil {
		observability.RecordWebhookEvent(EventFailure, "rejected")
		return err
	}

	observability.RecordWebhookEvent(EventFailure, "applied")
	r.logger.Info("webhook failed charge",
		ports.String("transaction_id", txn.ID),
		ports.String("payment_ref", event.PaymentRef))
	return nil
}

// applyRefund marks a successful charge refunded. The refund must not exceed
// what was actually charged (installment amount plus late fee); anything else
// is a reconciliation mismatch and the local record stays untouched.
func (r *Reconciler) applyRefund(ctx context.Context, txn *domain.Transaction, event Event) error {
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		locked, err := r.txns.GetByIDForUpdate(ctx, tx, txn.ID)
		if err != nil {
			return err
		}

		if locked.Status == domain.TransactionStatusRefunded {
			if locked.RefundAmount.Equal(event.Amount) {
				observability.RecordWebhookEvent(EventRefund, "duplicate")
				return nil
			}
			return domain.ErrReconciliationMismatch.
				WithDetail("transaction_id", locked.ID).
				WithDetail("recorded_refund", locked.RefundAmount.String()).
				WithDetail("event_refund", event.Amount.String())
		}
		if !locked.CanBeRefunded() {
			return domain.ErrReconciliationMismatch.
				WithDetail("transaction_id", locked.ID).
				WithDetail("status", string(locked.Status))
		}

		charged := locked.Amount.Add(locked.LateFee)
		if !event.Amount.IsPositive() || event.Amount.GreaterThan(charged) {
			return domain.ErrReconciliationMismatch.
				WithDetail("transaction_id", locked.ID).
				WithDetail("charged", charged.String()).
				WithDetail("event_refund", event.Amount.String())
		}

		now := r.clock.Now()
		locked.Status = domain.TransactionStatusRefunded
		locked.RefundAmount = event.Amount
		if event.Message != "" {
			locked.Message = event.Message
		}
		locked.UpdatedAt = now
		if err := r.txns.Update(ctx, tx, locked); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}

		observability.RecordWebhookEvent(EventRefund, "applied")
		observability.RecordRefund("webhook")
		r.logger.Info("webhook refunded charge",
			ports.String("transaction_id", locked.ID),
			ports.String("payment_ref", event.PaymentRef),
			ports.String("amount", event.Amount.String()))
		return nil
	})
	if err != nil && domain.IsDomainError(err, domain.ErrorCodeReconciliationMismatch) {
		observability.RecordWebhookEvent(EventRefund, "rejected")
		r.logger.Warn("refund event rejected",
			ports.String("transaction_id", txn.ID),
			ports.String("payment_ref", event.PaymentRef),
			ports.Err(err))
	}
	return err
}
