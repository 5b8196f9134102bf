package domain

// PaymentResultKind is the closed set of outcomes a charge attempt normalizes to.
type PaymentResultKind int

const (
	PaymentResultSuccess PaymentResultKind = iota
	PaymentResultDecline
	PaymentResultTransportError
	PaymentResultAmbiguous
)

func (k PaymentResultKind) String() string {
	switch k {
	case PaymentResultSuccess:
		return "success"
	case PaymentResultDecline:
		return "decline"
	case PaymentResultTransportError:
		return "transport_error"
	case PaymentResultAmbiguous:
		return "ambiguous"
	}
	return "unknown"
}

// DeclineKind classifies a processor refusal: card problems map to 402,
// bad input to 400 and idempotency or state conflicts to 409.
type DeclineKind int

const (
	DeclineCard DeclineKind = iota
	DeclineInput
	DeclineConflict
)

// ProcessorPayment is the normalized success payload.
type ProcessorPayment struct {
	ID            string
	Status        TransactionStatus
	Amount        int64
	Currency      string
	PaymentMethod PaymentMethodFingerprint
	ReceiptURL    string
}

// ProcessorDecline carries a safe message chosen from a fixed table plus
// the raw processor code for logs.
type ProcessorDecline struct {
	Kind     DeclineKind
	Message  string
	Code     string
	Category string
}

// PaymentResult is exactly one of the four variants selected by Kind.
type PaymentResult struct {
	Kind    PaymentResultKind
	Payment *ProcessorPayment
	Decline *ProcessorDecline
	Err     error  // transport or ambiguity cause
	Raw     []byte // raw processor body, logged for ambiguous outcomes
}

// ChargeRequest is what the processor adapter sends for one attempt.
type ChargeRequest struct {
	SourceID       string
	Amount         int64
	Currency       string
	LocationID     string
	IdempotencyKey string
	Note           string
	BuyerEmail     string
	ReferenceID    string
}

// ContextRefs links a payment to storefront objects owned by other services.
type ContextRefs struct {
	UserID        string
	ItemID        string
	CheckoutType  CheckoutType
	CustomerEmail string
	CustomerName  string
	Note          string
}

// SubmitPaymentRequest holds client input for one logical payment submission.
type SubmitPaymentRequest struct {
	PaymentMethodToken string
	Amount             int64
	Currency           string
	LocationID         string
	Refs               ContextRefs
}

// SubmitPaymentResult is returned to the client on success.
type SubmitPaymentResult struct {
	PaymentID  string            `json:"paymentId"`
	Status     TransactionStatus `json:"status"`
	ReceiptURL string            `json:"receiptUrl,omitempty"`
}
