package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/kevin07696/paylater-service/internal/domain/ports"
)

const (
	// DefaultDueSpec runs the due sweep every day at 09:00 UTC
	DefaultDueSpec = "0 9 * * *"
	// DefaultRetrySpec runs the retry sweep every 30 minutes
	DefaultRetrySpec = "*/30 * * * *"
)

// Runner schedules the sweeps with cron. Jobs run in cron's own goroutines;
// each sweep bounds itself with its sweep timeout.
type Runner struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  ports.Logger
}

// NewRunner creates a cron runner for the sweeper. Empty specs fall back to
// the defaults.
func NewRunner(sweeper *Sweeper, logger ports.Logger, dueSpec, retrySpec string) (*Runner, error) {
	if dueSpec == "" {
		dueSpec = DefaultDueSpec
	}
	if retrySpec == "" {
		retrySpec = DefaultRetrySpec
	}

	r := &Runner{
		cron:    cron.New(),
		sweeper: sweeper,
		logger:  logger,
	}

	if _, err := r.cron.AddFunc(dueSpec, func() {
		if err := sweeper.DueSweep(context.Background()); err != nil {
			logger.Error("due sweep failed", ports.Err(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule due sweep %q: %w", dueSpec, err)
	}

	if _, err := r.cron.AddFunc(retrySpec, func() {
		if err := sweeper.RetrySweep(context.Background()); err != nil {
			logger.Error("retry sweep failed", ports.Err(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule retry sweep %q: %w", retrySpec, err)
	}

	logger.Info("sweeps scheduled",
		ports.String("due", dueSpec),
		ports.String("retry", retrySpec))

	return r, nil
}

// Start begins running the scheduled sweeps
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop stops scheduling and waits for running jobs, or gives up when the
// context expires
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
