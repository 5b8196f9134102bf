// Package square is the Square Payments API adapter. It speaks the v2 REST
// API directly and normalizes every response into a domain.PaymentResult.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gds-payments/config"
	"gds-payments/internal/core/domain"

	"github.com/rs/zerolog"
)

const maxResponseBytes = 1 << 20

// Client implements ports.PaymentProcessor.
type Client struct {
	http          *http.Client
	apiVersion    string
	sandboxURL    string
	productionURL string
	log           zerolog.Logger
}

// NewClient creates a Square client. Every call is bounded by cfg.Timeout.
func NewClient(cfg config.SquareConfig, log zerolog.Logger) *Client {
	return &Client{
		http:          &http.Client{Timeout: cfg.Timeout},
		apiVersion:    cfg.APIVersion,
		sandboxURL:    strings.TrimRight(cfg.SandboxBaseURL, "/"),
		productionURL: strings.TrimRight(cfg.ProductionBaseURL, "/"),
		log:           log,
	}
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createPaymentRequest struct {
	SourceID          string `json:"source_id"`
	IdempotencyKey    string `json:"idempotency_key"`
	AmountMoney       money  `json:"amount_money"`
	LocationID        string `json:"location_id,omitempty"`
	Note              string `json:"note,omitempty"`
	BuyerEmailAddress string `json:"buyer_email_address,omitempty"`
	ReferenceID       string `json:"reference_id,omitempty"`
	Autocomplete      bool   `json:"autocomplete"`
}

type payment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountMoney *money `json:"amount_money"`
	ReceiptURL  string `json:"receipt_url"`
	CardDetails *struct {
		EntryMethod string `json:"entry_method"`
		Card        struct {
			CardBrand string `json:"card_brand"`
			Last4     string `json:"last_4"`
		} `json:"card"`
	} `json:"card_details"`
}

type apiError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

type createPaymentResponse struct {
	Payment *payment   `json:"payment"`
	Errors  []apiError `json:"errors"`
}

type listLocationsResponse struct {
	Locations []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"locations"`
	Errors []apiError `json:"errors"`
}

// CreatePayment submits one charge with autocomplete. It never returns an
// error; the outcome is encoded in the result kind.
func (c *Client) CreatePayment(ctx context.Context, creds domain.CredentialPayload, req domain.ChargeRequest) domain.PaymentResult {
	body, err := json.Marshal(createPaymentRequest{
		SourceID:          req.SourceID,
		IdempotencyKey:    req.IdempotencyKey,
		AmountMoney:       money{Amount: req.Amount, Currency: req.Currency},
		LocationID:        req.LocationID,
		Note:              req.Note,
		BuyerEmailAddress: req.BuyerEmail,
		ReferenceID:       req.ReferenceID,
		Autocomplete:      true,
	})
	if err != nil {
		return transportError(fmt.Errorf("encode payment request: %w", err))
	}

	start := time.Now()
	status, raw, err := c.do(ctx, creds, http.MethodPost, "/v2/payments", body)
	c.log.Debug().
		Int("http_status", status).
		Dur("latency", time.Since(start)).
		Str("idempotency_key", req.IdempotencyKey).
		Msg("square create payment")
	if err != nil {
		return transportError(err)
	}
	return normalizePayment(status, raw)
}

// ListLocations performs a read-only authenticated call to prove the
// credentials are live.
func (c *Client) ListLocations(ctx context.Context, creds domain.CredentialPayload) domain.CredentialTestResult {
	status, raw, err := c.do(ctx, creds, http.MethodGet, "/v2/locations", nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("square location lookup failed")
		return domain.CredentialTestResult{Valid: false, Error: "processor unreachable"}
	}

	switch {
	case status == http.StatusUnauthorized:
		return domain.CredentialTestResult{Error: "The access token was rejected by Square."}
	case status == http.StatusForbidden:
		return domain.CredentialTestResult{Error: "The access token is not allowed to read locations."}
	case status < 200 || status > 299:
		return domain.CredentialTestResult{Error: fmt.Sprintf("Square rejected the credentials (HTTP %d).", status)}
	}

	if creds.LocationID == "" {
		return domain.CredentialTestResult{Valid: true}
	}
	var resp listLocationsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.CredentialTestResult{Error: "Square returned an unreadable location list."}
	}
	for _, loc := range resp.Locations {
		if loc.ID == creds.LocationID {
			return domain.CredentialTestResult{Valid: true}
		}
	}
	return domain.CredentialTestResult{Error: "The location ID does not belong to this Square account."}
}

func (c *Client) baseURL(env domain.Environment) string {
	if env == domain.EnvironmentProduction {
		return c.productionURL
	}
	return c.sandboxURL
}

func (c *Client) do(ctx context.Context, creds domain.CredentialPayload, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL(creds.Environment)+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build square request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Square-Version", c.apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("square %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read square response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// normalizePayment maps an HTTP status and body onto exactly one result
// variant. Anything not matching a known shape is Ambiguous or TransportError.
func normalizePayment(status int, raw []byte) domain.PaymentResult {
	switch {
	case status >= 200 && status <= 299:
		return normalizeSuccess(raw)
	case status == http.StatusTooManyRequests, status >= 500:
		return transportError(fmt.Errorf("square returned HTTP %d", status))
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return transportError(fmt.Errorf("square rejected credentials: HTTP %d", status))
	}

	var resp createPaymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Errors) == 0 {
		return transportError(fmt.Errorf("square returned HTTP %d with unreadable body", status))
	}
	first := resp.Errors[0]
	if first.Category == "AUTHENTICATION_ERROR" || first.Category == "RATE_LIMIT_ERROR" || first.Category == "API_ERROR" {
		return transportError(fmt.Errorf("square %s: %s", strings.ToLower(first.Category), first.Code))
	}

	kind := classify(status, first)
	return domain.PaymentResult{
		Kind: domain.PaymentResultDecline,
		Decline: &domain.ProcessorDecline{
			Kind:     kind,
			Message:  safeMessage(kind, first.Code),
			Code:     first.Code,
			Category: first.Category,
		},
		Raw: raw,
	}
}

func normalizeSuccess(raw []byte) domain.PaymentResult {
	ambiguous := func(reason string) domain.PaymentResult {
		return domain.PaymentResult{
			Kind: domain.PaymentResultAmbiguous,
			Err:  errors.New(reason),
			Raw:  raw,
		}
	}

	var resp createPaymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ambiguous("success response is not valid JSON")
	}
	p := resp.Payment
	switch {
	case p == nil:
		return ambiguous("success response has no payment")
	case p.ID == "":
		return ambiguous("payment has no id")
	case p.AmountMoney == nil || p.AmountMoney.Amount <= 0 || p.AmountMoney.Currency == "":
		return ambiguous("payment has no amount")
	}
	st, ok := domain.ParseTransactionStatus(p.Status)
	if !ok {
		return ambiguous(fmt.Sprintf("payment has unknown status %q", p.Status))
	}

	out := &domain.ProcessorPayment{
		ID:         p.ID,
		Status:     st,
		Amount:     p.AmountMoney.Amount,
		Currency:   p.AmountMoney.Currency,
		ReceiptURL: p.ReceiptURL,
	}
	if p.CardDetails != nil {
		out.PaymentMethod = domain.PaymentMethodFingerprint{
			Brand:       p.CardDetails.Card.CardBrand,
			Last4:       p.CardDetails.Card.Last4,
			EntryMethod: p.CardDetails.EntryMethod,
		}
	}
	return domain.PaymentResult{Kind: domain.PaymentResultSuccess, Payment: out, Raw: raw}
}

func classify(status int, e apiError) domain.DeclineKind {
	if status == http.StatusConflict || e.Code == "IDEMPOTENCY_KEY_REUSED" || e.Code == "CONFLICT" {
		return domain.DeclineConflict
	}
	if e.Category == "PAYMENT_METHOD_ERROR" {
		return domain.DeclineCard
	}
	return domain.DeclineInput
}

func transportError(err error) domain.PaymentResult {
	return domain.PaymentResult{Kind: domain.PaymentResultTransportError, Err: err}
}
