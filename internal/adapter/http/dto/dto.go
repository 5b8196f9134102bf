package dto

// SubmitPaymentRequest is the request body for POST /api/v1/payments.
type SubmitPaymentRequest struct {
	PaymentMethodToken string       `json:"paymentMethodToken" binding:"required,max=255" sanitize:"trim"`
	Amount             int64        `json:"amount" binding:"required,gt=0"`
	Currency           string       `json:"currency" binding:"required,currency_code"`
	LocationID         string       `json:"locationId,omitempty" binding:"omitempty,safe_id,max=64"`
	ContextRefs        *ContextRefs `json:"contextRefs,omitempty"`
}

// ContextRefs links the payment to storefront records.
type ContextRefs struct {
	UserID        string `json:"userId,omitempty" binding:"omitempty,safe_id,max=64"`
	ItemID        string `json:"itemId,omitempty" binding:"omitempty,safe_id,max=64"`
	CheckoutType  string `json:"checkoutType,omitempty" binding:"omitempty,checkout_type"`
	CustomerEmail string `json:"customerEmail,omitempty" binding:"omitempty,email,max=254" sanitize:"trim"`
	// Rendered through html/template, which escapes on its own.
	CustomerName string `json:"customerName,omitempty" binding:"omitempty,max=100" sanitize:"trim"`
	Note         string `json:"note,omitempty" binding:"omitempty,max=500"`
}

// SubmitPaymentResponse is the response body for a captured payment.
type SubmitPaymentResponse struct {
	PaymentID  string `json:"paymentId"`
	Status     string `json:"status"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
}

// UpsertCredentialRequest is the request body for PUT /api/v1/admin/integrations/square.
// Secrets are only trimmed: escaping would change the value sent to the processor.
type UpsertCredentialRequest struct {
	Environment         string `json:"environment" binding:"required,oneof=sandbox production"`
	ApplicationID       string `json:"applicationId" binding:"required,max=128" sanitize:"trim"`
	AccessToken         string `json:"accessToken" binding:"required,max=512" sanitize:"trim"`
	LocationID          string `json:"locationId" binding:"required,safe_id,max=64"`
	WebhookSignatureKey string `json:"webhookSignatureKey" binding:"omitempty,max=256" sanitize:"trim"`
}

// TransactionListQuery holds the query string of GET /api/v1/admin/transactions.
type TransactionListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status string `form:"status" binding:"omitempty,oneof=PENDING APPROVED COMPLETED CANCELED FAILED REFUNDED"`
	UserID string `form:"userId" binding:"omitempty,safe_id,max=64"`
	From   string `form:"from"`
	To     string `form:"to"`
	Q      string `form:"q" binding:"omitempty,max=100"`
}

// TransactionResponse is one ledger row as returned to administrators.
type TransactionResponse struct {
	ID                 string  `json:"id"`
	ProcessorPaymentID string  `json:"processorPaymentId"`
	UserID             *string `json:"userId,omitempty"`
	ItemID             *string `json:"itemId,omitempty"`
	CheckoutType       *string `json:"checkoutType,omitempty"`
	Amount             int64   `json:"amount"`
	Currency           string  `json:"currency"`
	Status             string  `json:"status"`
	CardBrand          string  `json:"cardBrand,omitempty"`
	CardLast4          string  `json:"cardLast4,omitempty"`
	ReceiptURL         *string `json:"receiptUrl,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

// StatsResponse is the response body for GET /api/v1/admin/transactions/stats.
type StatsResponse struct {
	Currency        string `json:"currency"`
	Period          string `json:"period"`
	Total           int64  `json:"total"`
	Pending         int64  `json:"pending"`
	Approved        int64  `json:"approved"`
	Completed       int64  `json:"completed"`
	Canceled        int64  `json:"canceled"`
	Failed          int64  `json:"failed"`
	CompletedAmount int64  `json:"completedAmount"`
}

// WebhookAckResponse is returned to the processor on every accepted delivery.
type WebhookAckResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}
