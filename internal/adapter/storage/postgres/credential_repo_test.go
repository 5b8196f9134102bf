package postgres

import (
	"context"
	"testing"
	"time"

	"gds-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credColumns() []string {
	return []string{"id", "service", "environment", "name", "data_ciphertext", "iv",
		"is_active", "created_by", "created_at", "updated_at"}
}

func newTestCredential() *domain.IntegrationCredential {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.IntegrationCredential{
		ID:             uuid.New(),
		Service:        domain.ServiceSquare,
		Environment:    domain.EnvironmentSandbox,
		Name:           "Square sandbox",
		DataCiphertext: "bm9uY2U=:Y2lwaGVy",
		IV:             "bm9uY2U=",
		IsActive:       true,
		CreatedBy:      strPtr("admin-1"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCredentialRepo_ReplaceInTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCredentialRepo(mock)
	cred := newTestCredential()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE integration_credentials SET is_active = FALSE").
		WithArgs(domain.ServiceSquare).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO integration_credentials").
		WithArgs(cred.ID, cred.Service, cred.Environment, cred.Name, cred.DataCiphertext, cred.IV,
			true, cred.CreatedBy, cred.CreatedAt, cred.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	n, err := repo.DeactivateByService(context.Background(), tx, domain.ServiceSquare)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, repo.Create(context.Background(), tx, cred))
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_GetActiveByService(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCredentialRepo(mock)
	cred := newTestCredential()

	mock.ExpectQuery("SELECT .+ FROM integration_credentials WHERE service = \\$1 AND is_active").
		WithArgs(domain.ServiceSquare).
		WillReturnRows(pgxmock.NewRows(credColumns()).AddRow(
			cred.ID, cred.Service, cred.Environment, cred.Name, cred.DataCiphertext, cred.IV,
			cred.IsActive, cred.CreatedBy, cred.CreatedAt, cred.UpdatedAt,
		))

	got, err := repo.GetActiveByService(context.Background(), domain.ServiceSquare)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cred.ID, got.ID)
	assert.True(t, got.IsActive)
	assert.Equal(t, cred.DataCiphertext, got.DataCiphertext)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepo_GetActiveByService_None(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM integration_credentials").
		WithArgs(domain.ServiceSquare).
		WillReturnRows(pgxmock.NewRows(credColumns()))

	got, err := NewCredentialRepo(mock).GetActiveByService(context.Background(), domain.ServiceSquare)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
