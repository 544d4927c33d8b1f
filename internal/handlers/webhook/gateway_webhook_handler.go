package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/services/webhook"
	"github.com/kevin07696/paylater-service/pkg/resilience"
)

// GatewayWebhookHandler receives asynchronous payment notifications from the
// gateway and hands them to the reconciler
type GatewayWebhookHandler struct {
	reconciler *webhook.Reconciler
	timeouts   *resilience.TimeoutConfig
	logger     *zap.Logger
	secret     string // Shared token authenticating gateway callbacks
}

// NewGatewayWebhookHandler creates a new webhook handler
func NewGatewayWebhookHandler(
	reconciler *webhook.Reconciler,
	timeouts *resilience.TimeoutConfig,
	logger *zap.Logger,
	secret string,
) *GatewayWebhookHandler {
	return &GatewayWebhookHandler{
		reconciler: reconciler,
		timeouts:   timeouts,
		logger:     logger,
		secret:     secret,
	}
}

// WebhookRequest is the gateway's notification payload
type WebhookRequest struct {
	Provider   string `json:"provider"`
	PaymentRef string `json:"payment_ref"`
	EventType  string `json:"event_type"`
	Amount     string `json:"amount,omitempty"`
	Message    string `json:"message,omitempty"`
}

// WebhookResponse acknowledges a processed event
type WebhookResponse struct {
	Received    bool   `json:"received"`
	ProcessedAt string `json:"processed_at"`
}

// eventKinds maps gateway event types to reconciler event kinds
var eventKinds = map[string]string{
	"payment.succeeded": webhook.EventSuccess,
	"payment.failed":    webhook.EventFailure,
	"payment.refunded":  webhook.EventRefund,
}

// HandleEvent handles POST /webhooks/gateway
func (h *GatewayWebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("unauthorized webhook request",
			zap.String("remote_addr", r.RemoteAddr))
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Provider == "" || req.PaymentRef == "" || req.EventType == "" {
		h.respondError(w, http.StatusBadRequest, "provider, payment_ref and event_type are required")
		return
	}

	kind, ok := eventKinds[req.EventType]
	if !ok {
		// Unknown event types are acknowledged so the gateway stops
		// redelivering them
		h.logger.Info("unhandled webhook event type",
			zap.String("event_type", req.EventType),
			zap.String("payment_ref", req.PaymentRef))
		h.respond(w, http.StatusOK)
		return
	}

	amount := decimal.Zero
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		amount = parsed
	}

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	err := h.reconciler.ApplyEvent(ctx, webhook.Event{
		Provider:   req.Provider,
		PaymentRef: req.PaymentRef,
		Kind:       kind,
		Amount:     amount,
		Message:    req.Message,
	})
	if err != nil {
		if domain.IsDomainError(err, domain.ErrorCodeReconciliationMismatch) {
			h.respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("webhook event processing failed",
			zap.String("payment_ref", req.PaymentRef),
			zap.String("event_type", req.EventType),
			zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "event processing failed")
		return
	}

	h.respond(w, http.StatusOK)
}

// authenticateRequest verifies the shared webhook token
func (h *GatewayWebhookHandler) authenticateRequest(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	token := r.Header.Get("X-Webhook-Token")
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

func (h *GatewayWebhookHandler) respond(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := WebhookResponse{
		Received:    true,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode webhook response", zap.Error(err))
	}
}

func (h *GatewayWebhookHandler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
