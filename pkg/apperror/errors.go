package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
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

// ---- Authentication & Authorization (AUTH) ----

func ErrUnauthenticated(reason string) *AppError {
	if reason == "" {
		reason = "No authentication credentials provided"
	}
	return New("AUTH_001", reason, http.StatusUnauthorized)
}

func ErrForbidden(permission string) *AppError {
	return New("AUTH_002", fmt.Sprintf("API key does not have %s permission", permission), http.StatusForbidden)
}

func ErrUserOnly(action string) *AppError {
	return New("AUTH_003", fmt.Sprintf("Only users can %s", action), http.StatusForbidden)
}

// ---- Wallet & Transfer (WAL) ----

func ErrInvalidAmount() *AppError {
	return New("WAL_001", "Amount must be a positive number", http.StatusBadRequest)
}

func ErrSelfTransfer() *AppError {
	return New("WAL_002", "Cannot transfer to your own wallet", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("WAL_003", "Insufficient balance", http.StatusBadRequest)
}

func ErrRecipientNotFound() *AppError {
	return New("WAL_004", "Recipient wallet not found", http.StatusNotFound)
}

func ErrWalletNotFound() *AppError {
	return New("WAL_005", "Wallet not found", http.StatusNotFound)
}

// ---- Webhook Security (SEC) ----

func ErrInvalidSignature() *AppError {
	return New("SEC_001", "Invalid signature", http.StatusUnauthorized)
}

func ErrMissingSignature() *AppError {
	return New("SEC_002", "Missing gateway signature", http.StatusBadRequest)
}

// ---- API Keys (KEY) ----

func ErrKeyLimitExceeded() *AppError {
	return New("KEY_001", "Maximum of 5 active API keys allowed per user", http.StatusBadRequest)
}

func ErrKeyNotFound() *AppError {
	return New("KEY_002", "The specified API key was not found or does not belong to you", http.StatusNotFound)
}

func ErrKeyNotExpired() *AppError {
	return New("KEY_003", "This API key is still active and has not expired yet", http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Generic (GEN) ----

func ErrNotFound(entity string) *AppError {
	return New("GEN_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// GatewayError wraps a payment gateway fault.
func GatewayError(err error) *AppError {
	return Wrap("SYS_002", "Payment gateway error", http.StatusBadGateway, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
