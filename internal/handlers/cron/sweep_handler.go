package cron

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/paylater-service/internal/services/scheduler"
	"github.com/kevin07696/paylater-service/pkg/shutdown"
)

// SweepHandler exposes the scheduler sweeps as authenticated cron endpoints,
// for external schedulers (Cloud Scheduler and the like) and manual
// operational triggers. The in-process cron runner covers normal operation;
// these endpoints are additive.
type SweepHandler struct {
	sweeper    *scheduler.Sweeper
	tracker    *shutdown.InFlightTracker
	logger     *zap.Logger
	cronSecret string // Secret token for authenticating cron requests
}

// NewSweepHandler creates a new sweep cron handler. The tracker keeps
// graceful shutdown waiting until HTTP-triggered sweeps finish.
func NewSweepHandler(sweeper *scheduler.Sweeper, tracker *shutdown.InFlightTracker, logger *zap.Logger, cronSecret string) *SweepHandler {
	return &SweepHandler{
		sweeper:    sweeper,
		tracker:    tracker,
		logger:     logger,
		cronSecret: cronSecret,
	}
}

// SweepResponse reports a completed sweep
type SweepResponse struct {
	Success     bool   `json:"success"`
	Sweep       string `json:"sweep"`
	ProcessedAt string `json:"processed_at"`
	Error       string `json:"error,omitempty"`
}

// DueSweep handles POST /cron/due-sweep
func (h *SweepHandler) DueSweep(w http.ResponseWriter, r *http.Request) {
	h.runSweep(w, r, "due", h.sweeper.DueSweep)
}

// RetrySweep handles POST /cron/retry-sweep
func (h *SweepHandler) RetrySweep(w http.ResponseWriter, r *http.Request) {
	h.runSweep(w, r, "retry", h.sweeper.RetrySweep)
}

func (h *SweepHandler) runSweep(w http.ResponseWriter, r *http.Request, name string, sweep func(context.Context) error) {
	h.logger.Info("sweep triggered over http",
		zap.String("sweep", name),
		zap.String("remote_addr", r.RemoteAddr))

	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("unauthorized cron request",
			zap.String("sweep", name),
			zap.String("remote_addr", r.RemoteAddr))
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// The sweep bounds itself with the sweep timeout; it must not die with
	// the HTTP request.
	var err error
	started := h.tracker.RunWithContext(context.Background(), func(ctx context.Context) {
		err = sweep(ctx)
	})
	if !started {
		h.respondError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}

	resp := SweepResponse{
		Success:     err == nil,
		Sweep:       name,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode sweep response", zap.Error(err))
	}
}

// authenticateRequest verifies the cron request is authorized
func (h *SweepHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}
	token := r.Header.Get("X-Cron-Token")
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

func (h *SweepHandler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
