package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string   `json:"error_code"`
	Message    string   `json:"message"`
	Blockers   []string `json:"blockers,omitempty"` // Onboarding remediation steps for GATE_001
	HTTPStatus int      `json:"-"`
	Err        error    `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Code returns the AppError code carried by err, or "" when err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Validation (VAL) ----

// Validation rejects malformed or missing input before any state is touched.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Amount must be positive with at most 2 decimal places", http.StatusBadRequest)
}

func ErrInvalidTransition(entity, from, to string) *AppError {
	return New("VAL_003", fmt.Sprintf("%s cannot move from %s to %s", entity, from, to), http.StatusConflict)
}

// ErrDuplicateRequest reports a concurrent request that reused an
// Idempotency-Key; retrying replays the winner's response.
func ErrDuplicateRequest() *AppError {
	return New("VAL_004", "A request with this Idempotency-Key is already being processed", http.StatusConflict)
}

// ---- Onboarding gates (GATE) ----

// ErrGateBlocked carries every unmet onboarding precondition, in evaluation order.
func ErrGateBlocked(blockers []string) *AppError {
	e := New("GATE_001", "Action blocked by onboarding requirements", http.StatusUnprocessableEntity)
	e.Blockers = append([]string(nil), blockers...)
	return e
}

// ---- Lookup (NF) ----

func ErrNotFound(entity string) *AppError {
	return New("NF_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Funds (FUND) ----

func ErrInsufficientFunds() *AppError {
	return New("FUND_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

// ---- External boundaries (EXT) ----

func ErrExternalService(provider string, err error) *AppError {
	return Wrap("EXT_001", fmt.Sprintf("%s request failed", provider), http.StatusBadGateway, err)
}

func ErrQuoteExpired() *AppError {
	return New("EXT_002", "FX quote has expired", http.StatusConflict)
}

// ---- Authentication & authorization (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_002", "Role is not allowed to perform this action", http.StatusForbidden)
}

func ErrSecondFactorRequired() *AppError {
	return New("AUTH_003", "Two-factor verification required", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}
