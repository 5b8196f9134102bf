package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionStatus(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"PENDING", true},
		{"APPROVED", true},
		{"COMPLETED", true},
		{"CANCELED", true},
		{"FAILED", true},
		{"REFUNDED", true},
		{"completed", false},
		{"SUCCESS", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, ok := ParseTransactionStatus(tt.in)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestTransactionStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		want   bool
	}{
		{TransactionStatusPending, false},
		{TransactionStatusApproved, false},
		{TransactionStatusCompleted, true},
		{TransactionStatusCanceled, true},
		{TransactionStatusFailed, true},
		{TransactionStatusRefunded, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
			assert.Equal(t, tt.want, (&Transaction{Status: tt.status}).IsTerminal())
		})
	}
}

func TestTransactionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from TransactionStatus
		to   TransactionStatus
		want bool
	}{
		{"pending to approved", TransactionStatusPending, TransactionStatusApproved, true},
		{"pending to completed", TransactionStatusPending, TransactionStatusCompleted, true},
		{"approved to completed", TransactionStatusApproved, TransactionStatusCompleted, true},
		{"approved to canceled", TransactionStatusApproved, TransactionStatusCanceled, true},
		{"approved back to pending", TransactionStatusApproved, TransactionStatusPending, false},
		{"same status", TransactionStatusPending, TransactionStatusPending, false},
		{"completed stays completed", TransactionStatusCompleted, TransactionStatusCompleted, false},
		{"completed to pending", TransactionStatusCompleted, TransactionStatusPending, false},
		{"completed to failed", TransactionStatusCompleted, TransactionStatusFailed, false},
		{"failed to completed", TransactionStatusFailed, TransactionStatusCompleted, false},
		{"unknown target", TransactionStatusPending, TransactionStatus("MYSTERY"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusesBefore(t *testing.T) {
	assert.Equal(t,
		[]TransactionStatus{TransactionStatusPending, TransactionStatusApproved},
		StatusesBefore(TransactionStatusCompleted))
	assert.Equal(t,
		[]TransactionStatus{TransactionStatusPending},
		StatusesBefore(TransactionStatusApproved))
	assert.Empty(t, StatusesBefore(TransactionStatusPending))
}

func TestCheckoutType_IsValid(t *testing.T) {
	assert.True(t, CheckoutTypeAdoption.IsValid())
	assert.True(t, CheckoutTypeService.IsValid())
	assert.True(t, CheckoutTypeProduct.IsValid())
	assert.False(t, CheckoutType("subscription").IsValid())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "****wxyz", MaskSecret("EAAAl-token-wxyz"))
}

func TestWebhookEvent_ID(t *testing.T) {
	var snake WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(`{"type":"payment.updated","event_id":"evt_1"}`), &snake))
	assert.Equal(t, "evt_1", snake.ID())

	var camel WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(`{"type":"payment.updated","eventId":"evt_2"}`), &camel))
	assert.Equal(t, "evt_2", camel.ID())
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "50.00 USD", FormatMinorUnits(5000, "USD"))
	assert.Equal(t, "0.05 USD", FormatMinorUnits(5, "USD"))
	assert.Equal(t, "1234.56 CAD", FormatMinorUnits(123456, "CAD"))
}

func TestPaymentResultKind_String(t *testing.T) {
	assert.Equal(t, "success", PaymentResultSuccess.String())
	assert.Equal(t, "decline", PaymentResultDecline.String())
	assert.Equal(t, "transport_error", PaymentResultTransportError.String())
	assert.Equal(t, "ambiguous", PaymentResultAmbiguous.String())
}
