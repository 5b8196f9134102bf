package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PAY_010", "Card declined", http.StatusPaymentRequired),
			expected: "[PAY_010] Card declined",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("PAY_002", "test", http.StatusBadRequest).Unwrap())
}

func TestErrorCatalog(t *testing.T) {
	inner := fmt.Errorf("boom")
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidSignature", ErrInvalidSignature(), "SEC_002", 401},
		{"CredentialIntegrity", ErrCredentialIntegrity(inner), "SEC_005", 500},
		{"InvalidAmount", ErrInvalidAmount(), "PAY_002", 400},
		{"NotFound", ErrNotFound("Transaction"), "PAY_004", 404},
		{"Declined", ErrPaymentDeclined("Card declined"), "PAY_010", 402},
		{"Rejected", ErrPaymentRejected("Invalid card details"), "PAY_011", 400},
		{"Conflict", ErrPaymentConflict("Duplicate request"), "PAY_012", 409},
		{"Unavailable", ErrPaymentUnavailable(inner), "PAY_013", 500},
		{"Unconfirmed", ErrPaymentUnconfirmed(inner), "PAY_014", 500},
		{"NotConfigured", ErrProcessorNotConfigured(), "PAY_015", 503},
		{"MalformedWebhook", ErrMalformedWebhook(inner), "WH_001", 400},
		{"CredentialTestFailed", ErrCredentialTestFailed("bad token"), "INT_001", 400},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"Forbidden", ErrForbidden(), "AUTH_005", 403},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
		{"MediaType", ErrUnsupportedMediaType(), "REQ_001", 415},
		{"BodyTooLarge", ErrBodyTooLarge(), "REQ_002", 413},
		{"Database", ErrDatabaseError(inner), "SYS_001", 500},
		{"Encryption", ErrEncryptionFailure(inner), "SYS_003", 500},
		{"Validation", Validation("currency is required"), "PAY_002", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestWrappedErrorsKeepCause(t *testing.T) {
	inner := fmt.Errorf("dial tcp: i/o timeout")

	assert.True(t, errors.Is(ErrPaymentUnavailable(inner), inner))
	assert.True(t, errors.Is(ErrCredentialIntegrity(inner), inner))
	assert.NotContains(t, ErrPaymentUnavailable(inner).Message, "dial tcp")
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Transaction")
	assert.Contains(t, err.Message, "Transaction")
	assert.Equal(t, "PAY_004", err.Code)
}
