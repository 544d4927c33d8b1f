package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Lookup errors (*_NOT_FOUND) - reported to the caller, never retried
	ErrorCodePlanNotFound        ErrorCode = "PLAN_NOT_FOUND"
	ErrorCodeInstallmentNotFound ErrorCode = "INSTALLMENT_NOT_FOUND"
	ErrorCodeTxnNotFound         ErrorCode = "TXN_NOT_FOUND"

	// State machine errors
	ErrorCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrorCodeConcurrentAttempt ErrorCode = "CONCURRENT_ATTEMPT"

	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationCurrency      ErrorCode = "VALIDATION_CURRENCY_UNSUPPORTED"

	// Payment gateway errors (GATEWAY_*) - recorded on the transaction and
	// fed to the retry policy, never surfaced as a hard checkout error
	ErrorCodeGatewayError    ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayTimeout  ErrorCode = "GATEWAY_TIMEOUT"
	ErrorCodeGatewayDeclined ErrorCode = "GATEWAY_DECLINED"

	// Retry exhaustion - terminal, surfaced operationally
	ErrorCodeRetryExhausted ErrorCode = "RETRY_EXHAUSTED"

	// Webhook reconciliation conflicts - rejected, original state preserved
	ErrorCodeReconciliationMismatch ErrorCode = "RECONCILIATION_MISMATCH"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error with an added detail field. The
// receiver is left untouched so the shared error instances below stay
// immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if
// not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodePlanNotFound ||
		code == ErrorCodeInstallmentNotFound ||
		code == ErrorCodeTxnNotFound
}

// IsInvalidTransition checks if an error is an illegal state transition
func IsInvalidTransition(err error) bool {
	return GetErrorCode(err) == ErrorCodeInvalidTransition
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationCurrency
}

// IsGatewayError checks if an error is a payment gateway error
func IsGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeGatewayError ||
		code == ErrorCodeGatewayTimeout ||
		code == ErrorCodeGatewayDeclined
}

// Structured error instances
var (
	ErrPlanNotFound        = NewDomainError(ErrorCodePlanNotFound, "plan not found")
	ErrInstallmentNotFound = NewDomainError(ErrorCodeInstallmentNotFound, "installment not found")
	ErrTxnNotFound         = NewDomainError(ErrorCodeTxnNotFound, "transaction not found")

	ErrInvalidTransition = NewDomainError(ErrorCodeInvalidTransition, "illegal state transition")
	ErrConcurrentAttempt = NewDomainError(ErrorCodeConcurrentAttempt, "another attempt is already in flight for this installment")

	ErrValidationFailed    = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrInvalidAmount       = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrUnsupportedCurrency = NewDomainError(ErrorCodeValidationCurrency, "unsupported currency")

	ErrGatewayError    = NewDomainError(ErrorCodeGatewayError, "payment gateway error")
	ErrGatewayTimedOut = NewDomainError(ErrorCodeGatewayTimeout, "payment gateway timeout")
	ErrGatewayDeclined = NewDomainError(ErrorCodeGatewayDeclined, "payment declined by gateway")

	ErrRetryExhausted = NewDomainError(ErrorCodeRetryExhausted, "max charge attempts reached")

	ErrReconciliationMismatch = NewDomainError(ErrorCodeReconciliationMismatch, "webhook event inconsistent with local record")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
