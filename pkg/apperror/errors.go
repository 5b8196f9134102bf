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
	Err        error  `json:"-"` // never exposed to the client
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

// ---- Security & Integrity (SEC) ----

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

// ErrCredentialIntegrity is returned when stored credentials fail to decrypt.
func ErrCredentialIntegrity(err error) *AppError {
	return Wrap("SEC_005", "Stored credentials could not be read", http.StatusInternalServerError, err)
}

// ---- Payment (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrPaymentDeclined is a card-level decline reported by the processor.
func ErrPaymentDeclined(message string) *AppError {
	return New("PAY_010", message, http.StatusPaymentRequired)
}

// ErrPaymentRejected means the processor refused the request as invalid input.
func ErrPaymentRejected(message string) *AppError {
	return New("PAY_011", message, http.StatusBadRequest)
}

func ErrPaymentConflict(message string) *AppError {
	return New("PAY_012", message, http.StatusConflict)
}

func ErrPaymentUnavailable(err error) *AppError {
	return Wrap("PAY_013", "Payment processing is unavailable, please try again later", http.StatusInternalServerError, err)
}

// ErrPaymentUnconfirmed is returned when the processor answered but the outcome could not be read.
// The charge may have happened, so the client must not blindly retry.
func ErrPaymentUnconfirmed(err error) *AppError {
	return Wrap("PAY_014", "Payment could not be confirmed, please contact support before retrying", http.StatusInternalServerError, err)
}

func ErrProcessorNotConfigured() *AppError {
	return New("PAY_015", "Payment processing is not configured", http.StatusServiceUnavailable)
}

// ---- Webhooks (WH) ----

func ErrMalformedWebhook(err error) *AppError {
	return Wrap("WH_001", "Malformed webhook payload", http.StatusBadRequest, err)
}

// ---- Integrations (INT) ----

func ErrCredentialTestFailed(message string) *AppError {
	return New("INT_001", message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_005", "Insufficient permissions", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Request (REQ) ----

func ErrUnsupportedMediaType() *AppError {
	return New("REQ_001", "Content-Type must be application/json", http.StatusUnsupportedMediaType)
}

func ErrBodyTooLarge() *AppError {
	return New("REQ_002", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New("PAY_002", message, http.StatusBadRequest)
}
