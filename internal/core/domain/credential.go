package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceSquare is the integration name under which processor credentials are stored.
const ServiceSquare = "square"

// Environment selects the processor endpoint family.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

func (e Environment) IsValid() bool {
	return e == EnvironmentSandbox || e == EnvironmentProduction
}

// IntegrationCredential is an encrypted credential row. At most one row per
// Service is active; plaintext never leaves the vault.
type IntegrationCredential struct {
	ID             uuid.UUID
	Service        string
	Environment    Environment
	Name           string
	DataCiphertext string // base64(nonce):base64(ciphertext)
	IV             string // base64(nonce)
	IsActive       bool
	CreatedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CredentialPayload is the decrypted processor configuration.
type CredentialPayload struct {
	Environment         Environment `json:"environment"`
	ApplicationID       string      `json:"applicationId"`
	AccessToken         string      `json:"accessToken"`
	LocationID          string      `json:"locationId"`
	WebhookSignatureKey string      `json:"webhookSignatureKey"`
}

// CredentialStatus is the admin-facing view of stored credentials. Secrets are masked.
type CredentialStatus struct {
	Configured        bool        `json:"configured"`
	Environment       Environment `json:"environment,omitempty"`
	ApplicationID     string      `json:"applicationId,omitempty"`
	LocationID        string      `json:"locationId,omitempty"`
	AccessToken       string      `json:"accessToken,omitempty"`
	WebhookConfigured bool        `json:"webhookConfigured"`
	UpdatedAt         *time.Time  `json:"updatedAt,omitempty"`
}

// CredentialTestResult reports whether the processor accepted a credential set.
type CredentialTestResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// MaskSecret keeps the last four characters of a secret.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
