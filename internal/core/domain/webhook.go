package domain

import "encoding/json"

// Webhook event types the processor sends.
const (
	EventPaymentCreated = "payment.created"
	EventPaymentUpdated = "payment.updated"
	EventOrderCreated   = "order.created"
	EventOrderUpdated   = "order.updated"
)

// WebhookEvent is the decoded notification envelope. Both the processor's
// snake_case event_id and a camelCase eventId are accepted.
type WebhookEvent struct {
	Type       string           `json:"type"`
	EventID    string           `json:"event_id"`
	EventIDAlt string           `json:"eventId"`
	MerchantID string           `json:"merchant_id"`
	CreatedAt  string           `json:"created_at"`
	Data       WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Object json.RawMessage `json:"object"`
}

// ID returns whichever event id the sender populated.
func (e *WebhookEvent) ID() string {
	if e.EventID != "" {
		return e.EventID
	}
	return e.EventIDAlt
}

// PaymentSnapshot is the subset of a payment object reconciliation needs.
type PaymentSnapshot struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// WebhookOutcome labels what happened to one delivery.
type WebhookOutcome string

const (
	WebhookOutcomeApplied   WebhookOutcome = "applied"
	WebhookOutcomeNoop      WebhookOutcome = "noop"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeUnknown   WebhookOutcome = "unknown_payment"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
	WebhookOutcomeAmbiguous WebhookOutcome = "ambiguous"
)

// WebhookAck is returned to the processor with a 200.
type WebhookAck struct {
	Received  bool           `json:"received"`
	Duplicate bool           `json:"duplicate,omitempty"`
	Outcome   WebhookOutcome `json:"outcome"`
}
