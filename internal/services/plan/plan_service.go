package plan

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/domain/ports"
	"github.com/kevin07696/paylater-service/internal/services/retry"
	"github.com/kevin07696/paylater-service/pkg/observability"
	"github.com/kevin07696/paylater-service/pkg/resilience"
	"github.com/kevin07696/paylater-service/pkg/timeutil"
)

// Options carries the tunable parts of the plan lifecycle
type Options struct {
	Timeouts            *resilience.TimeoutConfig
	GatewayProvider     string // Provider name recorded on transactions
	DefaultInstallments int    // Used when the checkout request leaves Installments at 0
	MaxInstallments     int
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		Timeouts:            resilience.DefaultTimeoutConfig(),
		GatewayProvider:     "stripe",
		DefaultInstallments: 3,
		MaxInstallments:     12,
	}
}

// Service implements ports.PlanService
type Service struct {
	db      ports.DBPort
	plans   ports.PlanRepository
	insts   ports.InstallmentRepository
	txns    ports.TransactionRepository
	gateway ports.PaymentGateway
	policy  retry.Policy
	clock   ports.Clock
	logger  ports.Logger
	opts    Options
}

// NewService creates a new plan service
func NewService(
	db ports.DBPort,
	plans ports.PlanRepository,
	insts ports.InstallmentRepository,
	txns ports.TransactionRepository,
	gateway ports.PaymentGateway,
	policy retry.Policy,
	clock ports.Clock,
	logger ports.Logger,
	opts Options,
) *Service {
	if opts.GatewayProvider == "" {
		opts.GatewayProvider = DefaultOptions().GatewayProvider
	}
	if opts.DefaultInstallments <= 0 {
		opts.DefaultInstallments = DefaultOptions().DefaultInstallments
	}
	if opts.MaxInstallments <= 0 {
		opts.MaxInstallments = DefaultOptions().MaxInstallments
	}
	if opts.Timeouts == nil {
		opts.Timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Service{
		db:      db,
		plans:   plans,
		insts:   insts,
		txns:    txns,
		gateway: gateway,
		policy:  policy,
		clock:   clock,
		logger:  logger,
		opts:    opts,
	}
}

// Checkout creates a plan in PENDING with its installment schedule, then
// synchronously charges the first installment. A declined or timed-out first
// charge leaves the plan PENDING and schedules a retry; the caller sees the
// decline on the returned view instead of an error.
func (s *Service) Checkout(ctx context.Context, req ports.CheckoutRequest) (*ports.PlanView, error) {
	if err := s.validateCheckout(&req); err != nil {
		return nil, err
	}

	n := req.Installments
	if n == 0 {
		n = s.opts.DefaultInstallments
	}

	now := s.clock.Now()

	p := &domain.Plan{
		ID:                uuid.New().String(),
		OrderID:           req.OrderID,
		UserID:            req.UserID,
		PrincipalAmount:   req.Amount.Round(2),
		Currency:          domain.Currency(req.Currency),
		InstallmentsTotal: n,
		Status:            domain.PlanStatusPending,
		PaymentMethodID:   req.PaymentMethodID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	parts := domain.SplitPrincipal(p.PrincipalAmount, n)
	installments := make([]*domain.Installment, n)
	for i := 0; i < n; i++ {
		installments[i] = &domain.Installment{
			ID:            uuid.New().String(),
			PlanID:        p.ID,
			Number:        i + 1,
			DueDate:       timeutil.AddMonths(now, i+1),
			PlannedAmount: parts[i],
			Currency:      p.Currency,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	firstAttempt := &domain.Transaction{
		ID:              uuid.New().String(),
		InstallmentID:   installments[0].ID,
		AttemptNumber:   1,
		Status:          domain.TransactionStatusPending,
		Amount:          installments[0].PlannedAmount,
		LateFee:         decimal.Zero,
		RefundAmount:    decimal.Zero,
		PaymentMethodID: p.PaymentMethodID,
		GatewayProvider: s.opts.GatewayProvider,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.plans.Create(ctx, tx, p); err != nil {
			return fmt.Errorf("create plan: %w", err)
		}
		if err := s.insts.CreateBatch(ctx, tx, installments); err != nil {
			return fmt.Errorf("create installments: %w", err)
		}
		if err := s.txns.CreateAttempt(ctx, tx, firstAttempt); err != nil {
			return fmt.Errorf("create first attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("checkout failed",
			ports.String("order_id", req.OrderID),
			ports.Err(err))
		return nil, err
	}

	// The gateway call happens outside the database transaction so a slow
	// gateway never holds row locks.
	outcome, err := s.ExecuteCharge(ctx, firstAttempt, string(p.Currency), "checkout")
	if err != nil {
		return nil, err
	}

	observability.RecordPlanCreated(string(p.Currency), outcome.Approved)

	s.logger.Info("plan created",
		ports.String("plan_id", p.ID),
		ports.String("order_id", p.OrderID),
		ports.String("currency", string(p.Currency)),
		ports.Int("installments", n),
		ports.Bool("first_charge_approved", outcome.Approved))

	updated, err := s.plans.GetByID(ctx, s.db.GetDB(), p.ID)
	if err != nil {
		return nil, err
	}

	view := toPlanView(updated)
	if !outcome.Approved {
		view.FirstChargeDeclined = true
		view.FirstChargeMessage = outcome.Message
	}
	return view, nil
}

func (s *Service) validateCheckout(req *ports.CheckoutRequest) error {
	if req.OrderID == "" || req.PaymentMethodID == "" || req.UserID == 0 {
		return domain.ErrValidationFailed
	}
	if !req.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if !domain.Currency(req.Currency).IsSupported() {
		return domain.ErrUnsupportedCurrency.WithDetail("currency", req.Currency)
	}
	if req.Installments < 0 || req.Installments > s.opts.MaxInstallments {
		return domain.ErrValidationFailed.WithDetail("installments", req.Installments)
	}
	return nil
}

// ExecuteCharge runs one gateway charge for a pending attempt, records the
// outcome, and folds gateway errors and timeouts into a failure outcome
// instead of propagating them. Used by checkout and by both sweeps; trigger
// labels the metrics.
func (s *Service) ExecuteCharge(ctx context.Context, txn *domain.Transaction, currency, trigger string) (ports.ChargeOutcome, error) {
	outcome := s.charge(ctx, txn, currency)
	observability.RecordChargeAttempt(s.opts.GatewayProvider, trigger, chargeStatusLabel(outcome))

	if err := s.RecordChargeOutcome(ctx, txn.ID, outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// charge calls the gateway under its own timeout; a declined, errored or
// timed-out call all come back as a failure outcome. The caller's context
// stays alive so the outcome is always recorded.
func (s *Service) charge(ctx context.Context, txn *domain.Transaction, currency string) ports.ChargeOutcome {
	gctx, cancel := s.opts.Timeouts.GatewayContext(ctx)
	defer cancel()

	result, err := s.gateway.Charge(gctx, &ports.ChargeRequest{
		Amount:           txn.Amount.Add(txn.LateFee),
		Currency:         currency,
		PaymentMethodRef: txn.PaymentMethodID,
		IdempotencyKey:   txn.ID,
	})
	if err != nil {
		timedOut := gctx.Err() == context.DeadlineExceeded || domain.GetErrorCode(err) == domain.ErrorCodeGatewayTimeout
		s.logger.Warn("gateway charge errored",
			ports.String("transaction_id", txn.ID),
			ports.Bool("timed_out", timedOut),
			ports.Err(err))
		return ports.ChargeOutcome{
			Approved: false,
			TimedOut: timedOut,
			Message:  err.Error(),
		}
	}
	return ports.ChargeOutcome{
		Approved:     result.Approved,
		PaymentRef:   result.PaymentRef,
		ResponseCode: result.ResponseCode,
		Message:      result.Message,
	}
}

// RecordChargeOutcome applies a charge outcome to a transaction and advances
// the owning plan. Idempotent: re-applying the outcome a transaction already
// carries is a no-op; contradicting a settled success is a reconciliation
// conflict.
func (s *Service) RecordChargeOutcome(ctx context.Context, transactionID string, outcome ports.ChargeOutcome) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		txn, err := s.txns.GetByIDForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}

		switch txn.Status {
		case domain.TransactionStatusSuccess, domain.TransactionStatusRefunded:
			if outcome.Approved {
				return nil // already settled
			}
			return domain.ErrReconciliationMismatch.
				WithDetail("transaction_id", txn.ID).
				WithDetail("status", string(txn.Status))
		case domain.TransactionStatusFailed:
			if !outcome.Approved {
				return nil // already failed
			}
			// A late success (gateway settled after we gave up) is applied
			// like any other success.
		}

		if outcome.Approved {
			return s.applySuccess(ctx, tx, txn, outcome)
		}
		return s.applyFailure(ctx, tx, txn, outcome)
	})
}

func (s *Service) applySuccess(ctx context.Context, tx pgx.Tx, txn *domain.Transaction, outcome ports.ChargeOutcome) error {
	now := s.clock.Now()

	txn.Status = domain.TransactionStatusSuccess
	txn.PaymentRef = outcome.PaymentRef
	txn.Message = outcome.Message
	txn.ChargedAt = &now
	txn.NextRetryAt = nil
	txn.UpdatedAt = now
	if err := s.txns.Update(ctx, tx, txn); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	inst, err := s.insts.GetByID(ctx, tx, txn.InstallmentID)
	if err != nil {
		return err
	}

	p, err := s.plans.GetByIDForUpdate(ctx, tx, inst.PlanID)
	if err != nil {
		return err
	}

	observability.RecordChargedAmount(string(p.Currency), txn.Amount.InexactFloat64())

	// A success on a terminal plan is still recorded on the transaction for
	// the audit trail, but the plan no longer advances.
	if p.IsTerminal() {
		s.logger.Warn("charge settled on terminal plan",
			ports.String("plan_id", p.ID),
			ports.String("transaction_id", txn.ID),
			ports.String("plan_status", string(p.Status)))
		return nil
	}

	settled, err := s.settledInstallments(ctx, tx, p.ID)
	if err != nil {
		return err
	}

	from := p.Status
	switch {
	case len(settled) >= p.InstallmentsTotal:
		p.Status = domain.PlanStatusCompleted
		p.CompletedAt = &now
	case len(settled) > 1:
		p.Status = domain.PlanStatusPartiallyPaid
	default:
		p.Status = domain.PlanStatusActive
	}

	if from == domain.PlanStatusPending {
		p.ApprovedAt = &now
		ref := outcome.PaymentRef
		p.FirstChargeRef = &ref
	}

	if p.Status != from {
		p.UpdatedAt = now
		if err := s.plans.Update(ctx, tx, p); err != nil {
			return fmt.Errorf("update plan: %w", err)
		}
		observability.RecordPlanTransition(string(from), string(p.Status))
		s.logger.Info("plan advanced",
			ports.String("plan_id", p.ID),
			ports.String("from", string(from)),
			ports.String("to", string(p.Status)),
			ports.Int("installments_paid", len(settled)))
	}

	return nil
}

func (s *Service) applyFailure(ctx context.Context, tx pgx.Tx, txn *domain.Transaction, outcome ports.ChargeOutcome) error {
	now := s.clock.Now()

	txn.Status = domain.TransactionStatusFailed
	txn.PaymentRef = outcome.PaymentRef
	txn.Message = failureMessage(outcome)
	txn.UpdatedAt = now

	if s.policy.AttemptsExhausted(txn) {
		txn.NextRetryAt = nil
		observability.RecordRetryExhausted()
		s.logger.Warn("charge attempts exhausted",
			ports.String("transaction_id", txn.ID),
			ports.String("installment_id", txn.InstallmentID),
			ports.Int("attempts", txn.AttemptNumber))
	} else {
		next := now.Add(s.policy.BackoffFor(txn.AttemptNumber))
		txn.NextRetryAt = &next
	}

	if err := s.txns.Update(ctx, tx, txn); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.logger.Info("charge attempt failed",
		ports.String("transaction_id", txn.ID),
		ports.String("installment_id", txn.InstallmentID),
		ports.Int("attempt", txn.AttemptNumber),
		ports.Bool("timed_out", outcome.TimedOut),
		ports.String("message", txn.Message))

	return nil
}

func failureMessage(outcome ports.ChargeOutcome) string {
	msg := outcome.Message
	if outcome.TimedOut && msg == "" {
		msg = "gateway charge timed out"
	}
	if outcome.ResponseCode != "" {
		msg = fmt.Sprintf("[%s] %s", outcome.ResponseCode, msg)
	}
	return msg
}

// settledInstallments returns the IDs of installments with a successful or
// refunded transaction
func (s *Service) settledInstallments(ctx context.Context, db ports.DBTX, planID string) (map[string]struct{}, error) {
	successes, err := s.txns.ListSuccessfulByPlan(ctx, db, planID)
	if err != nil {
		return nil, err
	}
	settled := make(map[string]struct{}, len(successes))
	for _, t := range successes {
		settled[t.InstallmentID] = struct{}{}
	}
	return settled, nil
}

// GetPlan retrieves a plan view by ID
func (s *Service) GetPlan(ctx context.Context, planID string) (*ports.PlanView, error) {
	p, err := s.plans.GetByID(ctx, s.db.GetDB(), planID)
	if err != nil {
		return nil, err
	}
	return toPlanView(p), nil
}

// ListUserPlans lists all plans for a user
func (s *Service) ListUserPlans(ctx context.Context, userID int64) ([]*ports.PlanView, error) {
	plans, err := s.plans.ListByUser(ctx, s.db.GetDB(), userID)
	if err != nil {
		return nil, err
	}
	return toPlanViews(plans), nil
}

// ListActiveUserPlans lists a user's plans still collecting payments
func (s *Service) ListActiveUserPlans(ctx context.Context, userID int64) ([]*ports.PlanView, error) {
	plans, err := s.plans.ListActiveByUser(ctx, s.db.GetDB(), userID)
	if err != nil {
		return nil, err
	}
	return toPlanViews(plans), nil
}

// UpdatePlanStatus transitions a plan to the target status if the transition
// table allows it
func (s *Service) UpdatePlanStatus(ctx context.Context, planID string, target domain.PlanStatus) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.plans.GetByIDForUpdate(ctx, tx, planID)
		if err != nil {
			return err
		}
		if p.Status == target {
			return nil
		}
		if !p.CanTransitionTo(target) {
			return domain.ErrInvalidTransition.
				WithDetail("plan_id", planID).
				WithDetail("from", string(p.Status)).
				WithDetail("to", string(target))
		}

		now := s.clock.Now()
		from := p.Status
		p.Status = target
		p.UpdatedAt = now
		switch target {
		case domain.PlanStatusCompleted:
			p.CompletedAt = &now
		case domain.PlanStatusCancelled:
			p.CanceledAt = &now
		}

		if err := s.plans.Update(ctx, tx, p); err != nil {
			return fmt.Errorf("update plan: %w", err)
		}
		observability.RecordPlanTransition(string(from), string(target))
		return nil
	})
}

// Cancel cancels a plan and clears its pending retry schedules so the retry
// sweep never picks the plan's failed attempts up again
func (s *Service) Cancel(ctx context.Context, planID, reason string) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.plans.GetByIDForUpdate(ctx, tx, planID)
		if err != nil {
			return err
		}
		if !p.CanBeCancelled() {
			return domain.ErrInvalidTransition.
				WithDetail("plan_id", planID).
				WithDetail("from", string(p.Status)).
				WithDetail("to", string(domain.PlanStatusCancelled))
		}

		now := s.clock.Now()
		from := p.Status
		p.Status = domain.PlanStatusCancelled
		p.CanceledAt = &now
		p.UpdatedAt = now
		if err := s.plans.Update(ctx, tx, p); err != nil {
			return fmt.Errorf("update plan: %w", err)
		}
		if err := s.txns.ClearRetrySchedules(ctx, tx, planID); err != nil {
			return fmt.Errorf("clear retry schedules: %w", err)
		}
		observability.RecordPlanTransition(string(from), string(domain.PlanStatusCancelled))
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("plan cancelled",
		ports.String("plan_id", planID),
		ports.String("reason", reason))
	return nil
}

// Pause suspends scheduling for a plan without changing its status
func (s *Service) Pause(ctx context.Context, planID, reason string) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.plans.GetByIDForUpdate(ctx, tx, planID)
		if err != nil {
			return err
		}
		if !p.CanBePaused() {
			return domain.ErrInvalidTransition.
				WithDetail("plan_id", planID).
				WithDetail("status", string(p.Status)).
				WithDetail("paused", p.Paused)
		}
		p.Paused = true
		p.UpdatedAt = s.clock.Now()
		return s.plans.Update(ctx, tx, p)
	})
	if err != nil {
		return err
	}

	s.logger.Info("plan paused",
		ports.String("plan_id", planID),
		ports.String("reason", reason))
	return nil
}

// Resume re-enables scheduling for a paused plan
func (s *Service) Resume(ctx context.Context, planID string) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.plans.GetByIDForUpdate(ctx, tx, planID)
		if err != nil {
			return err
		}
		if !p.CanBeResumed() {
			return domain.ErrInvalidTransition.
				WithDetail("plan_id", planID).
				WithDetail("status", string(p.Status)).
				WithDetail("paused", p.Paused)
		}
		p.Paused = false
		p.UpdatedAt = s.clock.Now()
		return s.plans.Update(ctx, tx, p)
	})
	if err != nil {
		return err
	}

	s.logger.Info("plan resumed", ports.String("plan_id", planID))
	return nil
}

// UpdatePaymentMethod changes the method future attempts will charge
func (s *Service) UpdatePaymentMethod(ctx context.Context, planID, paymentMethodID string) error {
	if paymentMethodID == "" {
		return domain.ErrValidationFailed.WithDetail("payment_method_id", "required")
	}
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.plans.GetByIDForUpdate(ctx, tx, planID)
		if err != nil {
			return err
		}
		if p.IsTerminal() {
			return domain.ErrInvalidTransition.
				WithDetail("plan_id", planID).
				WithDetail("status", string(p.Status))
		}
		p.PaymentMethodID = paymentMethodID
		p.UpdatedAt = s.clock.Now()
		return s.plans.Update(ctx, tx, p)
	})
}

// Refund sends an operator-initiated refund for a settled charge to the
// gateway, then marks the transaction REFUNDED. Refunds initiated at the
// provider arrive through the webhook reconciler instead; this path is for
// support tooling acting on our own record.
func (s *Service) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) error {
	txn, err := s.txns.GetByID(ctx, s.db.GetDB(), transactionID)
	if err != nil {
		return err
	}
	if !txn.CanBeRefunded() {
		return domain.ErrInvalidTransition.
			WithDetail("transaction_id", transactionID).
			WithDetail("status", string(txn.Status))
	}
	charged := txn.Amount.Add(txn.LateFee)
	if !amount.IsPositive() || amount.GreaterThan(charged) {
		return domain.ErrInvalidAmount.
			WithDetail("charged", charged.String()).
			WithDetail("refund", amount.String())
	}

	inst, err := s.insts.GetByID(ctx, s.db.GetDB(), txn.InstallmentID)
	if err != nil {
		return err
	}

	gctx, cancel := s.opts.Timeouts.GatewayContext(ctx)
	defer cancel()

	result, err := s.gateway.Refund(gctx, &ports.RefundRequest{
		PaymentRef: txn.PaymentRef,
		Amount:     amount,
		Currency:   string(inst.Currency),
		Reason:     reason,
	})
	if err != nil {
		s.logger.Warn("gateway refund errored",
			ports.String("transaction_id", transactionID),
			ports.Err(err))
		return err
	}
	if !result.Approved {
		return domain.ErrGatewayDeclined.
			WithDetail("transaction_id", transactionID).
			WithDetail("message", result.Message)
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		locked, err := s.txns.GetByIDForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		// The gateway refund already went out; a transaction that changed
		// state underneath it needs reconciling by hand.
		if locked.Status != domain.TransactionStatusSuccess {
			return domain.ErrReconciliationMismatch.
				WithDetail("transaction_id", transactionID).
				WithDetail("status", string(locked.Status))
		}

		locked.Status = domain.TransactionStatusRefunded
		locked.RefundAmount = amount
		if reason != "" {
			locked.Message = reason
		}
		locked.UpdatedAt = s.clock.Now()
		if err := s.txns.Update(ctx, tx, locked); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	observability.RecordRefund("operator")
	s.logger.Info("charge refunded",
		ports.String("transaction_id", transactionID),
		ports.String("payment_ref", txn.PaymentRef),
		ports.String("amount", amount.String()),
		ports.String("reason", reason))
	return nil
}

// Summary computes payment progress for a plan. Reads run in one read-only
// transaction so the installment list and transaction list agree.
func (s *Service) Summary(ctx context.Context, planID string) (*ports.PlanSummary, error) {
	var summary *ports.PlanSummary

	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.plans.GetByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		installments, err := s.insts.ListByPlan(ctx, tx, planID)
		if err != nil {
			return err
		}
		settled, err := s.settledInstallments(ctx, tx, planID)
		if err != nil {
			return err
		}

		paid := decimal.Zero
		paidCount := 0
		var nextDue *domain.Installment
		for _, inst := range installments {
			if _, ok := settled[inst.ID]; ok {
				paid = paid.Add(inst.PlannedAmount)
				paidCount++
				continue
			}
			if nextDue == nil {
				nextDue = inst
			}
		}

		summary = &ports.PlanSummary{
			PlanID:                p.ID,
			Status:                string(p.Status),
			TotalAmount:           p.PrincipalAmount,
			PaidAmount:            paid,
			RemainingAmount:       p.PrincipalAmount.Sub(paid),
			TotalInstallments:     p.InstallmentsTotal,
			PaidInstallments:      paidCount,
			RemainingInstallments: p.InstallmentsTotal - paidCount,
		}
		if nextDue != nil && !p.IsTerminal() {
			due := nextDue.DueDate
			amount := nextDue.PlannedAmount
			summary.NextDueDate = &due
			summary.NextDueAmount = &amount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func chargeStatusLabel(outcome ports.ChargeOutcome) string {
	switch {
	case outcome.Approved:
		return "success"
	case outcome.TimedOut:
		return "timeout"
	default:
		return "failed"
	}
}

func toPlanView(p *domain.Plan) *ports.PlanView {
	return &ports.PlanView{
		ID:                p.ID,
		OrderID:           p.OrderID,
		UserID:            p.UserID,
		PrincipalAmount:   p.PrincipalAmount,
		Currency:          string(p.Currency),
		Status:            string(p.Status),
		InstallmentsTotal: p.InstallmentsTotal,
		Paused:            p.Paused,
		CreatedAt:         p.CreatedAt,
		ApprovedAt:        p.ApprovedAt,
		CompletedAt:       p.CompletedAt,
		CanceledAt:        p.CanceledAt,
	}
}

func toPlanViews(plans []*domain.Plan) []*ports.PlanView {
	views := make([]*ports.PlanView, len(plans))
	for i, p := range plans {
		views[i] = toPlanView(p)
	}
	return views
}
