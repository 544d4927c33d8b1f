package plan

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/domain/ports"
	"github.com/kevin07696/paylater-service/pkg/resilience"
)

// Handler exposes the plan service over HTTP
type Handler struct {
	service  ports.PlanService
	timeouts *resilience.TimeoutConfig
	logger   *zap.Logger
}

// NewHandler creates a new plan handler
func NewHandler(service ports.PlanService, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		timeouts: timeouts,
		logger:   logger,
	}
}

// CheckoutRequest is the checkout payload
type CheckoutRequest struct {
	OrderID         string `json:"order_id"`
	UserID          int64  `json:"user_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	PaymentMethodID string `json:"payment_method_id"`
	Installments    int    `json:"installments"`
}

// Checkout handles POST /api/v1/plans
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	view, err := h.service.Checkout(ctx, ports.CheckoutRequest{
		OrderID:         req.OrderID,
		UserID:          req.UserID,
		Amount:          amount,
		Currency:        req.Currency,
		PaymentMethodID: req.PaymentMethodID,
		Installments:    req.Installments,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, view)
}

// GetPlan handles GET /api/v1/plans/{id}
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	view, err := h.service.GetPlan(ctx, r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// ListPlans handles GET /api/v1/plans?user_id=N[&active=true]
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		h.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	var views []*ports.PlanView
	if r.URL.Query().Get("active") == "true" {
		views, err = h.service.ListActiveUserPlans(ctx, userID)
	} else {
		views, err = h.service.ListUserPlans(ctx, userID)
	}
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"plans": views})
}

// Summary handles GET /api/v1/plans/{id}/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	summary, err := h.service.Summary(ctx, r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, summary)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /api/v1/plans/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	if err := h.service.Cancel(ctx, r.PathValue("id"), req.Reason); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": string(domain.PlanStatusCancelled)})
}

// Pause handles POST /api/v1/plans/{id}/pause
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	if err := h.service.Pause(ctx, r.PathValue("id"), req.Reason); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

// Resume handles POST /api/v1/plans/{id}/resume
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	if err := h.service.Resume(ctx, r.PathValue("id")); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// UpdatePaymentMethod handles PUT /api/v1/plans/{id}/payment-method
func (h *Handler) UpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentMethodID string `json:"payment_method_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	if err := h.service.UpdatePaymentMethod(ctx, r.PathValue("id"), req.PaymentMethodID); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"payment_method_id": req.PaymentMethodID})
}

// Refund handles POST /api/v1/transactions/{id}/refund
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	ctx, cancel := h.timeouts.HandlerContext(r.Context())
	defer cancel()

	if err := h.service.Refund(ctx, r.PathValue("id"), amount, req.Reason); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"refunded_amount": amount.StringFixed(2)})
}

// respondDomainError maps domain error codes onto HTTP statuses
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFoundError(err):
		h.respondError(w, http.StatusNotFound, err.Error())
	case domain.IsValidationError(err):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case domain.IsInvalidTransition(err):
		h.respondError(w, http.StatusConflict, err.Error())
	case domain.IsGatewayError(err):
		h.respondError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("plan request failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
