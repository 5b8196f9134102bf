package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gds-payments/config"
	"gds-payments/internal/adapter/http/handler"
	"gds-payments/internal/adapter/metrics"
	"gds-payments/internal/adapter/processor/square"
	redisStorage "gds-payments/internal/adapter/storage/redis"
	"gds-payments/internal/core/domain"
	"gds-payments/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	flowVaultKey        = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	flowNotificationURL = "https://shop.example.com/api/v1/webhooks/square"
	flowSignatureKey    = "whsec-flow-key"
	flowGoodToken       = "EAAA-good-access-token"
)

// flowApp wires the real HTTP layer, services, vault encryption and Redis
// stores over in-memory repositories and a fake Square API.
type flowApp struct {
	server  *httptest.Server
	square  *httptest.Server
	txRepo  *inMemoryTransactionRepo
	creds   *inMemoryCredentialRepo
	queue   *recordingQueue
	tokens  *service.JWTTokenService
	signer  *service.HMACSignatureService
	charges atomic.Int64
}

func newFlowApp(t *testing.T) *flowApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := &flowApp{
		txRepo: newInMemoryTransactionRepo(),
		creds:  &inMemoryCredentialRepo{},
		queue:  &recordingQueue{},
		tokens: service.NewJWTTokenService("flow-jwt-secret", time.Hour, "gds-auth"),
		signer: service.NewHMACSignatureService(),
	}
	app.square = httptest.NewServer(http.HandlerFunc(app.fakeSquare))
	t.Cleanup(app.square.Close)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := zerolog.Nop()
	encSvc, err := service.NewAESEncryptionService(flowVaultKey)
	require.NoError(t, err)

	processor := square.NewClient(config.SquareConfig{
		APIVersion:        "2024-06-04",
		SandboxBaseURL:    app.square.URL,
		ProductionBaseURL: app.square.URL,
		Timeout:           5 * time.Second,
	}, log)

	vault := service.NewVaultService(app.creds, encSvc, &inMemoryTransactor{}, log)
	metricsNop := metrics.Nop{}

	router := handler.SetupRouter(handler.RouterDeps{
		PaymentSvc: service.NewPaymentService(app.txRepo, vault, processor, app.queue, metricsNop, log),
		WebhookSvc: service.NewWebhookService(
			app.txRepo, vault, app.signer, redisStorage.NewEventStore(rdb), metricsNop,
			flowNotificationURL, time.Hour, log,
		),
		IntegrationSvc: service.NewIntegrationService(vault, processor, log),
		ReportingSvc:   service.NewReportingService(app.txRepo),
		TokenSvc:       app.tokens,
		AdminRole:      "admin",
		Logger:         log,
	})

	app.server = httptest.NewServer(router)
	t.Cleanup(app.server.Close)
	return app
}

// fakeSquare answers the two endpoints the adapter calls. The payment
// outcome is chosen by the source token.
func (a *flowApp) fakeSquare(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer "+flowGoodToken {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v2/locations":
		_, _ = io.WriteString(w, `{"locations":[{"id":"L1","status":"ACTIVE"}]}`)

	case r.Method == http.MethodPost && r.URL.Path == "/v2/payments":
		var req struct {
			SourceID    string `json:"source_id"`
			AmountMoney struct {
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
			} `json:"amount_money"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		status := "COMPLETED"
		switch req.SourceID {
		case "tok_decline":
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = io.WriteString(w, `{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"GENERIC_DECLINE","detail":"Authorization error"}]}`)
			return
		case "tok_pending":
			status = "PENDING"
		case "tok_slow":
			time.Sleep(300 * time.Millisecond)
		}

		n := a.charges.Add(1)
		_, _ = fmt.Fprintf(w, `{"payment":{"id":"pay_%d","status":%q,"amount_money":{"amount":%d,"currency":%q},`+
			`"receipt_url":"https://squareup.com/receipt/preview/pay_%d",`+
			`"card_details":{"entry_method":"KEYED","card":{"card_brand":"VISA","last_4":"1111"}}}}`,
			n, status, req.AmountMoney.Amount, req.AmountMoney.Currency, n)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type flowResponse struct {
	Status int
	Data   map[string]interface{}
	Code   string
	Meta   map[string]interface{}
}

func (a *flowApp) do(t *testing.T, method, path string, body interface{}, headers map[string]string) flowResponse {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope struct {
		Data      map[string]interface{} `json:"data"`
		Meta      map[string]interface{} `json:"meta"`
		ErrorCode string                 `json:"error_code"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = json.Unmarshal(raw, &envelope)

	return flowResponse{Status: resp.StatusCode, Data: envelope.Data, Code: envelope.ErrorCode, Meta: envelope.Meta}
}

func (a *flowApp) admin(t *testing.T) map[string]string {
	t.Helper()
	tok, _, err := a.tokens.Generate("admin-1", []string{"admin"})
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func (a *flowApp) configure(t *testing.T) {
	t.Helper()
	resp := a.do(t, http.MethodPut, "/api/v1/admin/integrations/square", map[string]string{
		"environment":         "sandbox",
		"applicationId":       "sandbox-sq0idb-app",
		"accessToken":         flowGoodToken,
		"locationId":          "L1",
		"webhookSignatureKey": flowSignatureKey,
	}, a.admin(t))
	require.Equal(t, http.StatusOK, resp.Status, "configure credentials: %s", resp.Code)
}

func (a *flowApp) pay(t *testing.T, token string, email string) flowResponse {
	t.Helper()
	body := map[string]interface{}{
		"paymentMethodToken": token,
		"amount":             5000,
		"currency":           "USD",
		"contextRefs": map[string]string{
			"userId":        "user-1",
			"itemId":        "puppy-42",
			"checkoutType":  "adoption",
			"customerEmail": email,
		},
	}
	return a.do(t, http.MethodPost, "/api/v1/payments", body, nil)
}

func paymentEvent(eventID, paymentID, status string) []byte {
	return []byte(fmt.Sprintf(`{"merchant_id":"M1","type":"payment.updated","event_id":%q,"created_at":"2026-03-01T10:00:00Z",`+
		`"data":{"type":"payment","id":%q,"object":{"payment":{"id":%q,"status":%q,"updated_at":"2026-03-01T10:00:00Z"}}}}`,
		eventID, paymentID, paymentID, status))
}

func (a *flowApp) deliver(t *testing.T, body []byte) flowResponse {
	t.Helper()
	sig := a.signer.Sign(flowSignatureKey, a.signer.BuildCanonicalPayload(flowNotificationURL, body))
	return a.do(t, http.MethodPost, "/api/v1/webhooks/square", body, map[string]string{
		handler.HeaderSquareSignature: sig,
	})
}

func TestFlow_NotConfigured(t *testing.T) {
	app := newFlowApp(t)

	resp := app.pay(t, "tok_ok", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, "PAY_015", resp.Code)

	resp = app.deliver(t, paymentEvent("evt_0", "pay_0", "COMPLETED"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)

	status := app.do(t, http.MethodGet, "/api/v1/admin/integrations/square", nil, app.admin(t))
	assert.Equal(t, http.StatusOK, status.Status)
	assert.Equal(t, false, status.Data["configured"])
}

func TestFlow_CredentialUpsert(t *testing.T) {
	app := newFlowApp(t)

	bad := app.do(t, http.MethodPut, "/api/v1/admin/integrations/square", map[string]string{
		"environment":   "sandbox",
		"applicationId": "app",
		"accessToken":   "EAAA-revoked",
		"locationId":    "L1",
	}, app.admin(t))
	assert.Equal(t, http.StatusBadRequest, bad.Status)
	assert.Equal(t, "INT_001", bad.Code)
	assert.Empty(t, app.creds.active(), "rejected credentials must not be stored")

	wrongLocation := app.do(t, http.MethodPut, "/api/v1/admin/integrations/square", map[string]string{
		"environment":   "sandbox",
		"applicationId": "app",
		"accessToken":   flowGoodToken,
		"locationId":    "L9",
	}, app.admin(t))
	assert.Equal(t, http.StatusBadRequest, wrongLocation.Status)

	app.configure(t)
	app.configure(t)

	active := app.creds.active()
	require.Len(t, active, 1, "exactly one active credential after rotation")
	assert.NotContains(t, active[0].DataCiphertext, flowGoodToken)
	require.NotNil(t, active[0].CreatedBy)
	assert.Equal(t, "admin-1", *active[0].CreatedBy)

	status := app.do(t, http.MethodGet, "/api/v1/admin/integrations/square", nil, app.admin(t))
	assert.Equal(t, http.StatusOK, status.Status)
	assert.Equal(t, "****oken", status.Data["accessToken"])
	assert.Equal(t, true, status.Data["webhookConfigured"])

	test := app.do(t, http.MethodPost, "/api/v1/admin/integrations/square/test", nil, app.admin(t))
	assert.Equal(t, http.StatusOK, test.Status)
	assert.Equal(t, true, test.Data["valid"])
}

func TestFlow_ChargeOutcomes(t *testing.T) {
	app := newFlowApp(t)
	app.configure(t)

	ok := app.pay(t, "tok_ok", "buyer@example.com")
	require.Equal(t, http.StatusOK, ok.Status)
	paymentID := ok.Data["paymentId"].(string)
	assert.Equal(t, "COMPLETED", ok.Data["status"])

	row, found := app.txRepo.get(paymentID)
	require.True(t, found)
	assert.Equal(t, int64(5000), row.Amount)
	assert.Equal(t, "USD", row.Currency)
	assert.Equal(t, domain.TransactionStatusCompleted, row.Status)
	assert.Equal(t, "1111", row.PaymentMethod.Last4)
	assert.Equal(t, 1, app.queue.receiptCount())

	declined := app.pay(t, "tok_decline", "buyer@example.com")
	assert.Equal(t, http.StatusPaymentRequired, declined.Status)
	assert.Equal(t, "PAY_010", declined.Code)
	assert.Equal(t, 1, app.txRepo.count(), "a decline writes nothing")
	assert.Equal(t, 1, app.queue.receiptCount())

	noEmail := app.pay(t, "tok_ok", "")
	require.Equal(t, http.StatusOK, noEmail.Status)
	assert.Equal(t, 2, app.txRepo.count())
	assert.Equal(t, 1, app.queue.receiptCount(), "no email, no receipt")

	list := app.do(t, http.MethodGet, "/api/v1/admin/transactions?limit=10", nil, app.admin(t))
	assert.Equal(t, http.StatusOK, list.Status)
	assert.Equal(t, float64(2), list.Meta["total"])
}

func TestFlow_WebhookReconciliation(t *testing.T) {
	app := newFlowApp(t)
	app.configure(t)

	pending := app.pay(t, "tok_pending", "")
	require.Equal(t, http.StatusOK, pending.Status)
	paymentID := pending.Data["paymentId"].(string)

	row, _ := app.txRepo.get(paymentID)
	require.Equal(t, domain.TransactionStatusPending, row.Status)

	completed := paymentEvent("evt_1", paymentID, "COMPLETED")

	first := app.deliver(t, completed)
	assert.Equal(t, http.StatusOK, first.Status)
	assert.Equal(t, true, first.Data["received"])
	row, _ = app.txRepo.get(paymentID)
	assert.Equal(t, domain.TransactionStatusCompleted, row.Status)

	// the same delivery again
	second := app.deliver(t, completed)
	assert.Equal(t, http.StatusOK, second.Status)
	assert.Equal(t, true, second.Data["duplicate"])
	assert.Equal(t, 1, app.txRepo.updateCount())

	// a different event reporting the same status
	again := app.deliver(t, paymentEvent("evt_2", paymentID, "COMPLETED"))
	assert.Equal(t, http.StatusOK, again.Status)
	assert.Equal(t, 1, app.txRepo.updateCount())

	// terminal statuses are sticky
	stale := app.deliver(t, paymentEvent("evt_3", paymentID, "PENDING"))
	assert.Equal(t, http.StatusOK, stale.Status)
	row, _ = app.txRepo.get(paymentID)
	assert.Equal(t, domain.TransactionStatusCompleted, row.Status)

	// unknown payment id is acknowledged without a write
	unknown := app.deliver(t, paymentEvent("evt_4", "pay_unknown", "COMPLETED"))
	assert.Equal(t, http.StatusOK, unknown.Status)
	assert.Equal(t, 1, app.txRepo.count())
	assert.Equal(t, 1, app.txRepo.updateCount())
}

func TestFlow_WebhookSignatureCoversEveryByte(t *testing.T) {
	app := newFlowApp(t)
	app.configure(t)

	pending := app.pay(t, "tok_pending", "")
	require.Equal(t, http.StatusOK, pending.Status)
	paymentID := pending.Data["paymentId"].(string)

	body := paymentEvent("evt_sig", paymentID, "COMPLETED")
	sig := app.signer.Sign(flowSignatureKey, app.signer.BuildCanonicalPayload(flowNotificationURL, body))

	for _, i := range []int{0, len(body) / 2, len(body) - 1} {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01

		resp := app.do(t, http.MethodPost, "/api/v1/webhooks/square", mutated, map[string]string{
			handler.HeaderSquareSignature: sig,
		})
		assert.Equal(t, http.StatusUnauthorized, resp.Status, "byte %d", i)
		assert.Equal(t, "SEC_002", resp.Code)
	}

	row, _ := app.txRepo.get(paymentID)
	assert.Equal(t, domain.TransactionStatusPending, row.Status)
	assert.Equal(t, 0, app.txRepo.updateCount())

	// the untouched body still verifies, so the claim was not consumed
	resp := app.deliver(t, body)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Nil(t, resp.Data["duplicate"])
}

func TestFlow_ConcurrentRedeliveries(t *testing.T) {
	app := newFlowApp(t)
	app.configure(t)

	pending := app.pay(t, "tok_pending", "")
	require.Equal(t, http.StatusOK, pending.Status)
	paymentID := pending.Data["paymentId"].(string)

	body := paymentEvent("evt_race", paymentID, "COMPLETED")
	sig := app.signer.Sign(flowSignatureKey, app.signer.BuildCanonicalPayload(flowNotificationURL, body))

	const deliveries = 20
	var (
		wg         sync.WaitGroup
		ok         atomic.Int64
		duplicates atomic.Int64
	)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/webhooks/square", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(handler.HeaderSquareSignature, sig)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			raw, _ := io.ReadAll(resp.Body)
			if resp.StatusCode == http.StatusOK {
				ok.Add(1)
			}
			if strings.Contains(string(raw), `"duplicate":true`) {
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(deliveries), ok.Load())
	assert.Equal(t, int64(deliveries-1), duplicates.Load())
	assert.Equal(t, 1, app.txRepo.updateCount())

	row, _ := app.txRepo.get(paymentID)
	assert.Equal(t, domain.TransactionStatusCompleted, row.Status)
}

func TestFlow_ConcurrentDistinctEventsApplyOnce(t *testing.T) {
	app := newFlowApp(t)
	app.configure(t)

	pending := app.pay(t, "tok_pending", "")
	require.Equal(t, http.StatusOK, pending.Status)
	paymentID := pending.Data["paymentId"].(string)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := paymentEvent(fmt.Sprintf("evt_%d", i), paymentID, "COMPLETED")
			sig := app.signer.Sign(flowSignatureKey, app.signer.BuildCanonicalPayload(flowNotificationURL, body))
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/webhooks/square", bytes.NewReader(body))
			req.Header.Set(handler.HeaderSquareSignature, sig)
			if resp, err := http.DefaultClient.Do(req); err == nil {
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, app.txRepo.updateCount(), "the conditional update applies once")
}

func TestFlow_ClientDisconnectStillRecordsCharge(t *testing.T) {
	app := newFlowApp(t)
	app.configure(t)

	raw, err := json.Marshal(map[string]interface{}{
		"paymentMethodToken": "tok_slow",
		"amount":             5000,
		"currency":           "USD",
	})
	require.NoError(t, err)

	// the buyer gives up while the processor is still working
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, app.server.URL+"/api/v1/payments", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err == nil {
		resp.Body.Close()
	}
	require.Error(t, err, "client should have timed out before the charge returned")

	assert.Eventually(t, func() bool { return app.txRepo.count() == 1 }, 2*time.Second, 20*time.Millisecond,
		"the captured charge must reach the ledger")
	assert.Equal(t, int64(1), app.charges.Load())
}
