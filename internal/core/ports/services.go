package ports

import (
	"context"
	"errors"
	"time"

	"gds-payments/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(stored string) ([]byte, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(key string, payload []byte) string
	Verify(key string, payload []byte, signature string) bool
	BuildCanonicalPayload(notificationURL string, body []byte) []byte
}

// TokenService handles admin JWT operations.
type TokenService interface {
	Generate(subject string, roles []string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the token grants role.
func (c *TokenClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ProcessedEventStore remembers webhook event ids to short-circuit redeliveries.
type ProcessedEventStore interface {
	// Claim returns true if the event id is neither in flight nor processed.
	// The claim lapses after ttl unless Complete is called.
	Claim(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	// Complete records the event as processed for ttl.
	Complete(ctx context.Context, eventID string, ttl time.Duration) error
	// Release forgets a claim so a redelivery is processed again.
	Release(ctx context.Context, eventID string) error
}

// PaymentProcessor is the external card processor.
type PaymentProcessor interface {
	// CreatePayment never returns an error: every outcome is one of the
	// four PaymentResult variants.
	CreatePayment(ctx context.Context, creds domain.CredentialPayload, req domain.ChargeRequest) domain.PaymentResult
	// ListLocations is the cheapest authenticated call, used as a credential self-test.
	ListLocations(ctx context.Context, creds domain.CredentialPayload) domain.CredentialTestResult
}

// TaskQueue enqueues background work that must not block a request.
type TaskQueue interface {
	EnqueueReceipt(ctx context.Context, receipt domain.Receipt) error
	EnqueueLedgerRepair(ctx context.Context, transaction domain.Transaction) error
}

// ErrMailDisabled is returned when a receipt is requested but no mailer is configured.
var ErrMailDisabled = errors.New("mail delivery is disabled")

// Mailer delivers a rendered email.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailMessage is one outbound email.
type MailMessage struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Metrics records business outcomes.
type Metrics interface {
	ObservePayment(outcome string)
	ObserveWebhook(eventType string, outcome string)
	IncLedgerWriteFailure()
	ObserveTask(taskType string, result string)
}

// --- Service Ports (Business Logic) ---

// CredentialVault stores processor credentials encrypted at rest.
type CredentialVault interface {
	Put(ctx context.Context, service string, payload domain.CredentialPayload, createdBy *string) (uuid.UUID, error)
	Get(ctx context.Context, service string) (*domain.CredentialPayload, error)
	Status(ctx context.Context, service string) (*domain.CredentialStatus, error)
}

// PaymentService submits charges and keeps the ledger in step.
type PaymentService interface {
	Submit(ctx context.Context, req domain.SubmitPaymentRequest) (*domain.SubmitPaymentResult, error)
	RepairLedger(ctx context.Context, transaction *domain.Transaction) error
}

// WebhookService verifies and applies processor notifications.
type WebhookService interface {
	Handle(ctx context.Context, body []byte, signature string) (*domain.WebhookAck, error)
}

// IntegrationService manages processor credentials for administrators.
type IntegrationService interface {
	Upsert(ctx context.Context, payload domain.CredentialPayload, actor *string) (*domain.CredentialStatus, error)
	Status(ctx context.Context) (*domain.CredentialStatus, error)
	TestCredentials(ctx context.Context, payload domain.CredentialPayload) domain.CredentialTestResult
	TestStored(ctx context.Context) (*domain.CredentialTestResult, error)
}

// NotificationService renders and sends customer emails.
type NotificationService interface {
	SendReceipt(ctx context.Context, receipt domain.Receipt) error
}

// ReportingService exposes read-only ledger queries to administrators.
type ReportingService interface {
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetTransaction(ctx context.Context, processorPaymentID string) (*domain.Transaction, error)
	GetStats(ctx context.Context, currency string, period string) (*TransactionStats, error)
}

// AuditService records audit entries without blocking the request.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
