package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrCredentialNotFound is returned when no active credential exists for a service.
var ErrCredentialNotFound = errors.New("credential not found")

// VaultServiceImpl implements ports.CredentialVault. Nothing is cached: every
// Get reads and decrypts the active row, so a rotation is visible immediately.
type VaultServiceImpl struct {
	credRepo   ports.CredentialRepository
	encSvc     ports.EncryptionService
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewVaultService creates a new VaultServiceImpl.
func NewVaultService(
	credRepo ports.CredentialRepository,
	encSvc ports.EncryptionService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *VaultServiceImpl {
	return &VaultServiceImpl{
		credRepo:   credRepo,
		encSvc:     encSvc,
		transactor: transactor,
		log:        log,
	}
}

// Put encrypts payload and makes it the single active credential for service.
func (s *VaultServiceImpl) Put(ctx context.Context, service string, payload domain.CredentialPayload, createdBy *string) (uuid.UUID, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal credential payload: %w", err)
	}
	sealed, err := s.encSvc.Encrypt(plaintext)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encrypt credential payload: %w", err)
	}

	now := time.Now().UTC()
	cred := &domain.IntegrationCredential{
		ID:             uuid.New(),
		Service:        service,
		Environment:    payload.Environment,
		Name:           fmt.Sprintf("%s %s credentials", service, payload.Environment),
		DataCiphertext: sealed,
		IV:             NonceOf(sealed),
		IsActive:       true,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	deactivated, err := s.credRepo.DeactivateByService(ctx, dbTx, service)
	if err != nil {
		return uuid.Nil, fmt.Errorf("deactivate credentials: %w", err)
	}
	if err := s.credRepo.Create(ctx, dbTx, cred); err != nil {
		return uuid.Nil, fmt.Errorf("insert credential: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit tx: %w", err)
	}

	s.log.Info().
		Str("service", service).
		Str("environment", string(payload.Environment)).
		Str("credential_id", cred.ID.String()).
		Int64("deactivated", deactivated).
		Msg("credentials stored")

	return cred.ID, nil
}

// Get returns the decrypted active credential for service.
// Errors wrap ErrCredentialNotFound or ErrDecryptionFailed.
func (s *VaultServiceImpl) Get(ctx context.Context, service string) (*domain.CredentialPayload, error) {
	cred, err := s.credRepo.GetActiveByService(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return nil, ErrCredentialNotFound
	}
	return s.open(cred)
}

func (s *VaultServiceImpl) open(cred *domain.IntegrationCredential) (*domain.CredentialPayload, error) {
	plaintext, err := s.encSvc.Decrypt(cred.DataCiphertext)
	if err != nil {
		return nil, fmt.Errorf("credential %s: %w", cred.ID, err)
	}

	var payload domain.CredentialPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("credential %s: %w: %v", cred.ID, ErrDecryptionFailed, err)
	}
	if payload.Environment == "" {
		payload.Environment = cred.Environment
	}
	return &payload, nil
}

// Status describes the active credential with secrets masked.
func (s *VaultServiceImpl) Status(ctx context.Context, service string) (*domain.CredentialStatus, error) {
	cred, err := s.credRepo.GetActiveByService(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return &domain.CredentialStatus{Configured: false}, nil
	}

	payload, err := s.open(cred)
	if err != nil {
		return nil, err
	}

	updatedAt := cred.UpdatedAt
	return &domain.CredentialStatus{
		Configured:        true,
		Environment:       payload.Environment,
		ApplicationID:     payload.ApplicationID,
		LocationID:        payload.LocationID,
		AccessToken:       domain.MaskSecret(payload.AccessToken),
		WebhookConfigured: payload.WebhookSignatureKey != "",
		UpdatedAt:         &updatedAt,
	}, nil
}
