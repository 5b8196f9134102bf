package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus mirrors the processor's payment status.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusApproved  TransactionStatus = "APPROVED"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCanceled  TransactionStatus = "CANCELED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

var knownStatuses = map[TransactionStatus]int{
	TransactionStatusPending:   0,
	TransactionStatusApproved:  1,
	TransactionStatusCompleted: 2,
	TransactionStatusCanceled:  2,
	TransactionStatusFailed:    2,
	TransactionStatusRefunded:  2,
}

// ParseTransactionStatus accepts the processor's spelling of a status.
// Unknown values report ok=false and must not be written to the ledger.
func ParseTransactionStatus(s string) (TransactionStatus, bool) {
	st := TransactionStatus(s)
	_, ok := knownStatuses[st]
	return st, ok
}

// IsTerminal reports whether no further status change is accepted.
func (s TransactionStatus) IsTerminal() bool {
	return knownStatuses[s] == 2
}

// CanTransitionTo implements the sticky-terminal policy: terminal statuses never
// change and non-terminal statuses only move forward (PENDING -> APPROVED -> terminal).
// Re-applying the current status is not a transition.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	from, okFrom := knownStatuses[s]
	to, okTo := knownStatuses[next]
	if !okFrom || !okTo || s == next || s.IsTerminal() {
		return false
	}
	return to > from
}

// StatusesBefore lists every status that may legally move to next.
// Used as the guard of the conditional ledger update.
func StatusesBefore(next TransactionStatus) []TransactionStatus {
	var out []TransactionStatus
	for _, s := range []TransactionStatus{TransactionStatusPending, TransactionStatusApproved} {
		if s.CanTransitionTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// CheckoutType identifies what a payment is for.
type CheckoutType string

const (
	CheckoutTypeAdoption CheckoutType = "adoption"
	CheckoutTypeService  CheckoutType = "service"
	CheckoutTypeProduct  CheckoutType = "product"
)

// IsValid reports whether the checkout type is one the storefront sends.
func (c CheckoutType) IsValid() bool {
	switch c {
	case CheckoutTypeAdoption, CheckoutTypeService, CheckoutTypeProduct:
		return true
	}
	return false
}

// PaymentMethodFingerprint is the only card data kept locally.
type PaymentMethodFingerprint struct {
	Brand       string `json:"brand,omitempty"`
	Last4       string `json:"last4,omitempty"`
	EntryMethod string `json:"entryMethod,omitempty"`
}

// Transaction is the local ledger row for one processor payment.
// Amount and currency are fixed at creation; only Status and UpdatedAt change.
type Transaction struct {
	ID                 uuid.UUID                `json:"id"`
	UserID             *string                  `json:"userId,omitempty"`
	ItemID             *string                  `json:"itemId,omitempty"`
	CheckoutType       *CheckoutType            `json:"checkoutType,omitempty"`
	ProcessorPaymentID string                   `json:"processorPaymentId"`
	Amount             int64                    `json:"amount"` // minor units
	Currency           string                   `json:"currency"`
	Status             TransactionStatus        `json:"status"`
	PaymentMethod      PaymentMethodFingerprint `json:"paymentMethod"`
	ReceiptURL         *string                  `json:"receiptUrl,omitempty"`
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}
