package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthReport is the payload served by the health endpoint
type HealthReport struct {
	CheckedAt time.Time         `json:"checked_at"`
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker probes the service's hard dependencies. Postgres is the only
// one; the payment gateway is deliberately not probed, since charges degrade
// into the retry path on their own and a gateway outage should not take this
// service out of rotation.
type HealthChecker struct {
	pool *pgxpool.Pool
}

// NewHealthChecker creates a health checker over the connection pool
func NewHealthChecker(pool *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{pool: pool}
}

// Check pings postgres under a short deadline
func (h *HealthChecker) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		CheckedAt: time.Now().UTC(),
		Status:    statusHealthy,
		Checks:    make(map[string]string),
	}

	if h.pool == nil {
		report.Checks["postgres"] = "not configured"
		return report
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.pool.Ping(pingCtx); err != nil {
		report.Status = statusUnhealthy
		report.Checks["postgres"] = err.Error()
		return report
	}

	report.Checks["postgres"] = statusHealthy
	return report
}

// HealthHandler serves the full health report as JSON
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status != statusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// ReadinessHandler answers readiness probes. It runs the same database check
// as the health endpoint; an instance without its pool should leave rotation.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if report := h.Check(r.Context()); report.Status != statusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	}
}
