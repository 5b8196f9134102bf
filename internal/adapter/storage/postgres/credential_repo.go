package postgres

import (
	"context"
	"errors"
	"fmt"

	"gds-payments/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// CredentialRepo implements ports.CredentialRepository.
type CredentialRepo struct {
	pool Pool
}

func NewCredentialRepo(pool Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// Create inserts an encrypted credential row within a database transaction.
func (r *CredentialRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.IntegrationCredential) error {
	query := `INSERT INTO integration_credentials
		(id, service, environment, name, data_ciphertext, iv, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.Service, c.Environment, c.Name, c.DataCiphertext, c.IV,
		c.IsActive, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// DeactivateByService clears the active flag on every row for service.
func (r *CredentialRepo) DeactivateByService(ctx context.Context, tx pgx.Tx, service string) (int64, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE integration_credentials SET is_active = FALSE, updated_at = NOW()
		 WHERE service = $1 AND is_active`, service)
	if err != nil {
		return 0, fmt.Errorf("deactivate credentials: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetActiveByService returns nil, nil when the service has no active row.
func (r *CredentialRepo) GetActiveByService(ctx context.Context, service string) (*domain.IntegrationCredential, error) {
	query := `SELECT id, service, environment, name, data_ciphertext, iv, is_active, created_by, created_at, updated_at
		FROM integration_credentials WHERE service = $1 AND is_active
		ORDER BY created_at DESC LIMIT 1`

	c := &domain.IntegrationCredential{}
	err := r.pool.QueryRow(ctx, query, service).Scan(
		&c.ID, &c.Service, &c.Environment, &c.Name, &c.DataCiphertext, &c.IV,
		&c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active credential: %w", err)
	}
	return c, nil
}
