package ports

import (
	"context"
	"time"

	"gds-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// TransactionRepository persists the local payment ledger.
type TransactionRepository interface {
	// Create inserts the row unless one already exists for the processor payment id.
	// inserted is false when the row was already there.
	Create(ctx context.Context, transaction *domain.Transaction) (inserted bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByProcessorPaymentID(ctx context.Context, processorPaymentID string) (*domain.Transaction, error)
	// UpdateStatus applies status only while the row is in one of from.
	// updated is false when no row matched the guard.
	UpdateStatus(ctx context.Context, processorPaymentID string, status domain.TransactionStatus, from []domain.TransactionStatus) (updated bool, err error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetStats(ctx context.Context, currency string, since *time.Time) (*TransactionStats, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	Status   *domain.TransactionStatus
	UserID   *string
	From     *time.Time
	To       *time.Time
	Search   string // matches id or processor payment id
	Page     int
	PageSize int
}

// TransactionStats holds aggregated ledger counts for the admin dashboard.
type TransactionStats struct {
	Currency        string `json:"currency"`
	Total           int64  `json:"total"`
	Pending         int64  `json:"pending"`
	Approved        int64  `json:"approved"`
	Completed       int64  `json:"completed"`
	Canceled        int64  `json:"canceled"`
	Failed          int64  `json:"failed"`
	CompletedAmount int64  `json:"completedAmount"`
}

// CredentialRepository stores encrypted integration credentials.
// Methods accepting pgx.Tx run inside the vault's replace transaction.
type CredentialRepository interface {
	Create(ctx context.Context, tx pgx.Tx, credential *domain.IntegrationCredential) error
	DeactivateByService(ctx context.Context, tx pgx.Tx, service string) (int64, error)
	GetActiveByService(ctx context.Context, service string) (*domain.IntegrationCredential, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
