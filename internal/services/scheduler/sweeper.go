package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/domain/ports"
	"github.com/kevin07696/paylater-service/internal/services/fees"
	"github.com/kevin07696/paylater-service/internal/services/retry"
	"github.com/kevin07696/paylater-service/pkg/observability"
	"github.com/kevin07696/paylater-service/pkg/resilience"
)

// ChargeExecutor is the slice of the plan service the sweeps need: running a
// gateway charge for a claimed attempt and recording outcomes.
type ChargeExecutor interface {
	ExecuteCharge(ctx context.Context, txn *domain.Transaction, currency, trigger string) (ports.ChargeOutcome, error)
	RecordChargeOutcome(ctx context.Context, transactionID string, outcome ports.ChargeOutcome) error
}

// Config carries the sweep tunables
type Config struct {
	GatewayProvider string        // Provider recorded on attempts the sweeps create
	BatchSize       int32         // Max items one sweep picks up
	PendingTimeout  time.Duration // Age after which a PENDING attempt counts as stuck
	ChargesPerSec   float64       // Outbound charge rate limit
}

// DefaultConfig returns the production sweep settings
func DefaultConfig() Config {
	return Config{
		GatewayProvider: "stripe",
		BatchSize:       100,
		PendingTimeout:  30 * time.Minute,
		ChargesPerSec:   5,
	}
}

// errSkip aborts a claim transaction without treating it as a failure
var errSkip = errors.New("skip")

// Sweeper runs the due and retry sweeps. Concurrency safety does not come
// from the sweeper itself: claims go through the storage uniqueness guarantee
// (one live attempt per installment), so overlapping sweeps or multiple
// instances cannot double-charge.
type Sweeper struct {
	db       ports.DBPort
	plans    ports.PlanRepository
	insts    ports.InstallmentRepository
	txns     ports.TransactionRepository
	executor ChargeExecutor
	fees     *fees.Calculator
	policy   retry.Policy
	limiter  *rate.Limiter
	timeouts *resilience.TimeoutConfig
	clock    ports.Clock
	logger   ports.Logger
	cfg      Config
}

// NewSweeper creates the sweep runner
func NewSweeper(
	db ports.DBPort,
	plans ports.PlanRepository,
	insts ports.InstallmentRepository,
	txns ports.TransactionRepository,
	executor ChargeExecutor,
	feeCalc *fees.Calculator,
	policy retry.Policy,
	timeouts *resilience.TimeoutConfig,
	clock ports.Clock,
	logger ports.Logger,
	cfg Config,
) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.PendingTimeout <= 0 {
		cfg.PendingTimeout = DefaultConfig().PendingTimeout
	}
	if cfg.ChargesPerSec <= 0 {
		cfg.ChargesPerSec = DefaultConfig().ChargesPerSec
	}
	if cfg.GatewayProvider == "" {
		cfg.GatewayProvider = DefaultConfig().GatewayProvider
	}
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Sweeper{
		db:       db,
		plans:    plans,
		insts:    insts,
		txns:     txns,
		executor: executor,
		fees:     feeCalc,
		policy:   policy,
		limiter:  rate.NewLimiter(rate.Limit(cfg.ChargesPerSec), 1),
		timeouts: timeouts,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
	}
}

// DueSweep charges installments whose due date has arrived and which have no
// attempt yet. Each charge is claimed by inserting the attempt row inside a
// transaction that re-checks the plan under lock, so a plan cancelled or
// paused mid-sweep is skipped.
func (s *Sweeper) DueSweep(ctx context.Context) error {
	start := s.clock.Now()
	defer func() {
		observability.ObserveSweep("due", s.clock.Now().Sub(start))
	}()

	ctx, cancel := s.timeouts.SweepContext(ctx)
	defer cancel()

	due, err := s.insts.ListDueForCharge(ctx, s.db.GetDB(), start, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("due sweep: list due installments", ports.Err(err))
		return err
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Info("due sweep started", ports.Int("installments", len(due)))

	for _, inst := range due {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.chargeInstallment(ctx, inst, "due")
	}
	return nil
}

// chargeInstallment claims and charges one due installment
func (s *Sweeper) chargeInstallment(ctx context.Context, inst *domain.Installment, sweep string) {
	txn, err := s.claimDueAttempt(ctx, inst)
	if errors.Is(err, errSkip) {
		observability.RecordSweepResult(sweep, "skipped")
		return
	}
	if err != nil {
		observability.RecordSweepResult(sweep, "error")
		s.logger.Error("claim due attempt",
			ports.String("installment_id", inst.ID),
			ports.Err(err))
		return
	}

	trigger := sweep + "_sweep"
	outcome, err := s.executor.ExecuteCharge(ctx, txn, string(inst.Currency), trigger)
	if err != nil {
		observability.RecordSweepResult(sweep, "error")
		s.logger.Error("record charge outcome",
			ports.String("transaction_id", txn.ID),
			ports.Err(err))
		return
	}
	if outcome.Approved {
		observability.RecordSweepResult(sweep, "charged")
	} else {
		observability.RecordSweepResult(sweep, "failed")
	}
}

// claimDueAttempt inserts the attempt row for a due installment. Returns
// errSkip when the plan is no longer chargeable or another attempt won the
// race.
func (s *Sweeper) claimDueAttempt(ctx context.Context, inst *domain.Installment) (*domain.Transaction, error) {
	var txn *domain.Transaction

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.plans.GetByIDForUpdate(ctx, tx, inst.PlanID)
		if err != nil {
			return err
		}
		if !p.IsChargeable() {
			return errSkip
		}

		attempts, err := s.txns.ListByInstallment(ctx, tx, inst.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		lateFee := s.fees.LateFee(inst.PlannedAmount, s.fees.DaysOverdue(inst.DueDate))

		txn = &domain.Transaction{
			ID:              uuid.New().String(),
			InstallmentID:   inst.ID,
			AttemptNumber:   len(attempts) + 1,
			Status:          domain.TransactionStatusPending,
			Amount:          inst.PlannedAmount,
			LateFee:         lateFee,
			RefundAmount:    decimal.Zero,
			PaymentMethodID: p.PaymentMethodID,
			GatewayProvider: s.providerFor(attempts),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.txns.CreateAttempt(ctx, tx, txn); err != nil {
			if domain.IsDomainError(err, domain.ErrorCodeConcurrentAttempt) {
				return errSkip
			}
			return fmt.Errorf("create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// RetrySweep recovers stuck PENDING attempts and re-charges failed attempts
// whose backoff has elapsed
func (s *Sweeper) RetrySweep(ctx context.Context) error {
	start := s.clock.Now()
	defer func() {
		observability.ObserveSweep("retry", s.clock.Now().Sub(start))
	}()

	ctx, cancel := s.timeouts.SweepContext(ctx)
	defer cancel()

	if err := s.recoverStuckPending(ctx, start); err != nil {
		return err
	}

	candidates, err := s.txns.ListRetryCandidates(ctx, s.db.GetDB(), start, s.policy.MaxAttempts, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("retry sweep: list candidates", ports.Err(err))
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	s.logger.Info("retry sweep started", ports.Int("candidates", len(candidates)))

	for _, failed := range candidates {
		if !s.policy.Retryable(failed, start) {
			observability.RecordSweepResult("retry", "skipped")
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.retryAttempt(ctx, failed)
	}
	return nil
}

// recoverStuckPending fails PENDING attempts older than the pending timeout
// so they enter the retry path instead of blocking their installment forever
func (s *Sweeper) recoverStuckPending(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-s.cfg.PendingTimeout)
	stuck, err := s.txns.ListStuckPending(ctx, s.db.GetDB(), cutoff, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("retry sweep: list stuck pending", ports.Err(err))
		return err
	}

	for _, txn := range stuck {
		outcome := ports.ChargeOutcome{
			Approved: false,
			TimedOut: true,
			Message:  fmt.Sprintf("no gateway outcome within %s of attempt creation", s.cfg.PendingTimeout),
		}
		if err := s.executor.RecordChargeOutcome(ctx, txn.ID, outcome); err != nil {
			s.logger.Error("resolve stuck pending attempt",
				ports.String("transaction_id", txn.ID),
				ports.Err(err))
			continue
		}
		s.logger.Warn("stuck pending attempt failed out",
			ports.String("transaction_id", txn.ID),
			ports.String("installment_id", txn.InstallmentID),
			ports.Time("created_at", txn.CreatedAt))
	}
	return nil
}

// retryAttempt claims and charges the next attempt for a failed transaction
func (s *Sweeper) retryAttempt(ctx context.Context, failed *domain.Transaction) {
	inst, err := s.insts.GetByID(ctx, s.db.GetDB(), failed.InstallmentID)
	if err != nil {
		observability.RecordSweepResult("retry", "error")
		s.logger.Error("retry sweep: load installment",
			ports.String("installment_id", failed.InstallmentID),
			ports.Err(err))
		return
	}

	txn, err := s.claimRetryAttempt(ctx, failed, inst)
	if errors.Is(err, errSkip) {
		observability.RecordSweepResult("retry", "skipped")
		return
	}
	if err != nil {
		observability.RecordSweepResult("retry", "error")
		s.logger.Error("claim retry attempt",
			ports.String("transaction_id", failed.ID),
			ports.Err(err))
		return
	}

	outcome, err := s.executor.ExecuteCharge(ctx, txn, string(inst.Currency), "retry_sweep")
	if err != nil {
		observability.RecordSweepResult("retry", "error")
		s.logger.Error("record charge outcome",
			ports.String("transaction_id", txn.ID),
			ports.Err(err))
		return
	}
	if outcome.Approved {
		observability.RecordSweepResult("retry", "charged")
	} else {
		observability.RecordSweepResult("retry", "failed")
	}
}

// claimRetryAttempt creates the next attempt row for a failed transaction and
// clears the failed row's retry schedule so it is claimed exactly once.
// Lock order is plan row first, then the transaction row; Cancel takes its
// locks in the same order.
func (s *Sweeper) claimRetryAttempt(ctx context.Context, failed *domain.Transaction, inst *domain.Installment) (*domain.Transaction, error) {
	var txn *domain.Transaction

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		p, err := s.plans.GetByIDForUpdate(ctx, tx, inst.PlanID)
		if err != nil {
			return err
		}
		if !p.IsChargeable() {
			return errSkip
		}

		prev, err := s.txns.GetByIDForUpdate(ctx, tx, failed.ID)
		if err != nil {
			return err
		}
		if prev.Status != domain.TransactionStatusFailed || prev.NextRetryAt == nil {
			return errSkip // resolved by a webhook or another sweep
		}

		now := s.clock.Now()
		lateFee := s.fees.LateFee(inst.PlannedAmount, s.fees.DaysOverdue(inst.DueDate))

		txn = &domain.Transaction{
			ID:              uuid.New().String(),
			InstallmentID:   inst.ID,
			AttemptNumber:   prev.AttemptNumber + 1,
			Status:          domain.TransactionStatusPending,
			Amount:          inst.PlannedAmount,
			LateFee:         lateFee,
			RefundAmount:    decimal.Zero,
			PaymentMethodID: p.PaymentMethodID,
			GatewayProvider: prev.GatewayProvider,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.txns.CreateAttempt(ctx, tx, txn); err != nil {
			if domain.IsDomainError(err, domain.ErrorCodeConcurrentAttempt) {
				return errSkip
			}
			return fmt.Errorf("create attempt: %w", err)
		}

		prev.NextRetryAt = nil
		prev.UpdatedAt = now
		if err := s.txns.Update(ctx, tx, prev); err != nil {
			return fmt.Errorf("clear retry schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// providerFor keeps an installment's attempts on one provider so webhook
// reconciliation stays consistent across retries
func (s *Sweeper) providerFor(attempts []*domain.Transaction) string {
	if len(attempts) > 0 {
		return attempts[len(attempts)-1].GatewayProvider
	}
	return s.cfg.GatewayProvider
}
