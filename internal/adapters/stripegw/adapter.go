package stripegw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kevin07696/paylater-service/internal/domain"
	"github.com/kevin07696/paylater-service/internal/domain/ports"
)

// Config contains configuration for the Stripe gateway adapter
type Config struct {
	// Base URL of the charge API
	// Production: https://api.stripe.com
	BaseURL string

	// Secret API key, sent as a bearer token
	APIKey string

	// HTTP client timeout; callers usually also pass a bounded context
	Timeout time.Duration
}

// DefaultConfig returns the production adapter configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://api.stripe.com",
		Timeout: 30 * time.Second,
	}
}

// Adapter implements ports.PaymentGateway over the provider's HTTP API.
// Transport failures and timeouts come back as GATEWAY_* domain errors so the
// caller can fold them into a failed charge outcome; a decline is not an
// error but an unapproved result.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	logger     ports.Logger
}

// NewAdapter creates a new gateway adapter
func NewAdapter(config *Config, logger ports.Logger) *Adapter {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

type chargeRequest struct {
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	PaymentMethod  string            `json:"payment_method"`
	IdempotencyKey string            `json:"idempotency_key"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type refundRequest struct {
	PaymentRef string `json:"payment_ref"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Reason     string `json:"reason,omitempty"`
}

type gatewayResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Charge submits one charge to the gateway
func (a *Adapter) Charge(ctx context.Context, req *ports.ChargeRequest) (*ports.ChargeResult, error) {
	body := chargeRequest{
		Amount:         req.Amount.StringFixed(2),
		Currency:       req.Currency,
		PaymentMethod:  req.PaymentMethodRef,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	}
	return a.post(ctx, "/v1/charges", req.IdempotencyKey, body)
}

// Refund submits a refund for a settled charge
func (a *Adapter) Refund(ctx context.Context, req *ports.RefundRequest) (*ports.ChargeResult, error) {
	body := refundRequest{
		PaymentRef: req.PaymentRef,
		Amount:     req.Amount.StringFixed(2),
		Currency:   req.Currency,
		Reason:     req.Reason,
	}
	return a.post(ctx, "/v1/refunds", req.PaymentRef, body)
}

func (a *Adapter) post(ctx context.Context, path, idempotencyKey string, body interface{}) (*ports.ChargeResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)

	start := time.Now()
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			a.logger.Warn("gateway call timed out",
				ports.String("path", path),
				ports.Duration("elapsed", time.Since(start)))
			return nil, domain.WrapError(domain.ErrorCodeGatewayTimeout, "gateway call timed out", err)
		}
		return nil, domain.WrapError(domain.ErrorCodeGatewayError, "gateway call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayError, "read gateway response", err)
	}

	var gw gatewayResponse
	if err := json.Unmarshal(raw, &gw); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayError,
			fmt.Sprintf("decode gateway response (http %d)", resp.StatusCode), err)
	}

	a.logger.Debug("gateway response",
		ports.String("path", path),
		ports.Int("http_status", resp.StatusCode),
		ports.String("status", gw.Status),
		ports.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &ports.ChargeResult{
			Approved:     gw.Status == "succeeded",
			PaymentRef:   gw.ID,
			ResponseCode: gw.Code,
			Message:      gw.Message,
			Timestamp:    time.Now().UTC(),
		}, nil
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		// A decline is a result, not a transport error
		return &ports.ChargeResult{
			Approved:     false,
			PaymentRef:   gw.ID,
			ResponseCode: gw.Code,
			Message:      gw.Message,
			Timestamp:    time.Now().UTC(),
		}, nil
	default:
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayError,
			fmt.Sprintf("gateway returned http %d: %s", resp.StatusCode, gw.Message))
	}
}
