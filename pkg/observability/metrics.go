package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	plansCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylater_plans_created_total",
		Help: "Total pay-later plans created at checkout",
	}, []string{
		"currency",
		"first_charge", // approved, declined
	})

	planStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylater_plan_status_transitions_total",
		Help: "Total plan status transitions",
	}, []string{
		"from",
		"to",
	})

	chargeAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylater_charge_attempts_total",
		Help: "Total installment charge attempts",
	}, []string{
		"gateway_provider",
		"trigger", // checkout, due_sweep, retry_sweep
		"status",  // success, failed, timeout
	})

	chargeAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylater_charged_amount_total",
		Help: "Total amount successfully charged, in currency minor units",
	}, []string{
		"currency",
	})

	retriesExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paylater_retries_exhausted_total",
		Help: "Installments whose charge attempts hit the retry limit; these need operational follow-up",
	})

	refundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylater_refunds_total",
		Help: "Refunds recorded against settled charges",
	}, []string{
		"source", // operator, webhook
	})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylater_webhook_events_total",
		Help: "Inbound gateway webhook events by kind and reconciliation outcome",
	}, []string{
		"kind",    // success, failure, refund
		"outcome", // applied, duplicate, ignored, rejected
	})

	sweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paylater_sweep_duration_seconds",
		Help:    "Duration of scheduler sweeps",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{
		"sweep", // due, retry
	})

	sweepProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paylater_sweep_processed_total",
		Help: "Items handled by scheduler sweeps",
	}, []string{
		"sweep",
		"result", // charged, failed, skipped, error
	})
)

// RecordPlanCreated counts a checkout, tagged with the synchronous first
// charge outcome
func RecordPlanCreated(currency string, firstChargeApproved bool) {
	outcome := "approved"
	if !firstChargeApproved {
		outcome = "declined"
	}
	plansCreatedTotal.WithLabelValues(currency, outcome).Inc()
}

// RecordPlanTransition counts a plan status transition
func RecordPlanTransition(from, to string) {
	planStatusTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordChargeAttempt counts one gateway charge attempt
func RecordChargeAttempt(provider, trigger, status string) {
	chargeAttemptsTotal.WithLabelValues(provider, trigger, status).Inc()
}

// RecordChargedAmount accumulates successfully charged value
func RecordChargedAmount(currency string, amount float64) {
	chargeAmountTotal.WithLabelValues(currency).Add(amount)
}

// RecordRetryExhausted counts an installment whose attempts ran out
func RecordRetryExhausted() {
	retriesExhaustedTotal.Inc()
}

// RecordRefund counts a recorded refund by who initiated it
func RecordRefund(source string) {
	refundsTotal.WithLabelValues(source).Inc()
}

// RecordWebhookEvent counts an inbound gateway event and how it reconciled
func RecordWebhookEvent(kind, outcome string) {
	webhookEventsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveSweep records one sweep execution
func ObserveSweep(sweep string, elapsed time.Duration) {
	sweepDuration.WithLabelValues(sweep).Observe(elapsed.Seconds())
}

// RecordSweepResult counts a single item processed by a sweep
func RecordSweepResult(sweep, result string) {
	sweepProcessedTotal.WithLabelValues(sweep, result).Inc()
}
