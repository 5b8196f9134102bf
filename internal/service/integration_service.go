package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"
	"gds-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// IntegrationServiceImpl implements ports.IntegrationService.
type IntegrationServiceImpl struct {
	vault     ports.CredentialVault
	processor ports.PaymentProcessor
	log       zerolog.Logger
}

// NewIntegrationService creates a new IntegrationServiceImpl.
func NewIntegrationService(vault ports.CredentialVault, processor ports.PaymentProcessor, log zerolog.Logger) *IntegrationServiceImpl {
	return &IntegrationServiceImpl{vault: vault, processor: processor, log: log}
}

// Upsert self-tests the candidate credentials and stores them only if the
// processor accepts them.
func (s *IntegrationServiceImpl) Upsert(ctx context.Context, payload domain.CredentialPayload, actor *string) (*domain.CredentialStatus, error) {
	payload = normalizePayload(payload)
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	result := s.TestCredentials(ctx, payload)
	if !result.Valid {
		return nil, apperror.ErrCredentialTestFailed(result.Error)
	}

	if _, err := s.vault.Put(ctx, domain.ServiceSquare, payload, actor); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store credentials: %w", err))
	}
	return s.Status(ctx)
}

// Status returns the masked view of the stored credentials.
func (s *IntegrationServiceImpl) Status(ctx context.Context) (*domain.CredentialStatus, error) {
	st, err := s.vault.Status(ctx, domain.ServiceSquare)
	if err != nil {
		return nil, vaultError(err)
	}
	return st, nil
}

// TestCredentials runs the processor self-test against payload.
func (s *IntegrationServiceImpl) TestCredentials(ctx context.Context, payload domain.CredentialPayload) domain.CredentialTestResult {
	result := s.processor.ListLocations(ctx, payload)
	s.log.Info().
		Str("environment", string(payload.Environment)).
		Bool("valid", result.Valid).
		Msg("credential self-test")
	return result
}

// TestStored runs the self-test against the active credentials.
func (s *IntegrationServiceImpl) TestStored(ctx context.Context) (*domain.CredentialTestResult, error) {
	payload, err := s.vault.Get(ctx, domain.ServiceSquare)
	if err != nil {
		return nil, vaultError(err)
	}
	result := s.TestCredentials(ctx, *payload)
	return &result, nil
}

func normalizePayload(p domain.CredentialPayload) domain.CredentialPayload {
	p.Environment = domain.Environment(strings.ToLower(strings.TrimSpace(string(p.Environment))))
	p.ApplicationID = strings.TrimSpace(p.ApplicationID)
	p.AccessToken = strings.TrimSpace(p.AccessToken)
	p.LocationID = strings.TrimSpace(p.LocationID)
	p.WebhookSignatureKey = strings.TrimSpace(p.WebhookSignatureKey)
	return p
}

func validatePayload(p domain.CredentialPayload) error {
	switch {
	case !p.Environment.IsValid():
		return apperror.Validation("environment must be sandbox or production")
	case p.ApplicationID == "":
		return apperror.Validation("applicationId is required")
	case p.AccessToken == "":
		return apperror.Validation("accessToken is required")
	}
	return nil
}

// vaultError maps vault failures onto client-facing errors.
// vaultFailureLabel classifies a vault read failure the same way vaultError
// does, for metric labels.
func vaultFailureLabel(err error) string {
	switch {
	case errors.Is(err, ErrCredentialNotFound):
		return "not_configured"
	case errors.Is(err, ErrDecryptionFailed):
		return "integrity"
	default:
		return "vault_error"
	}
}

func vaultError(err error) error {
	switch {
	case errors.Is(err, ErrCredentialNotFound):
		return apperror.ErrProcessorNotConfigured()
	case errors.Is(err, ErrDecryptionFailed):
		return apperror.ErrCredentialIntegrity(err)
	default:
		return apperror.InternalError(err)
	}
}
