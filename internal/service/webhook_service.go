package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"
	"gds-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	// DefaultEventTTL bounds how long processed webhook ids are remembered.
	DefaultEventTTL = 24 * time.Hour
	// DefaultClaimTTL bounds an in-flight claim. A claim left behind by a
	// crashed process expires after this and the redelivery is handled again.
	DefaultClaimTTL = 2 * time.Minute
)

// WebhookServiceImpl implements ports.WebhookService.
type WebhookServiceImpl struct {
	txRepo          ports.TransactionRepository
	vault           ports.CredentialVault
	sigSvc          ports.SignatureService
	events          ports.ProcessedEventStore
	metrics         ports.Metrics
	notificationURL string
	eventTTL        time.Duration
	claimTTL        time.Duration
	log             zerolog.Logger
}

// NewWebhookService creates a new WebhookServiceImpl. notificationURL must be
// the exact URL registered with the processor; it is part of the signed payload.
func NewWebhookService(
	txRepo ports.TransactionRepository,
	vault ports.CredentialVault,
	sigSvc ports.SignatureService,
	events ports.ProcessedEventStore,
	metrics ports.Metrics,
	notificationURL string,
	eventTTL time.Duration,
	log zerolog.Logger,
) *WebhookServiceImpl {
	if eventTTL <= 0 {
		eventTTL = DefaultEventTTL
	}
	return &WebhookServiceImpl{
		txRepo:          txRepo,
		vault:           vault,
		sigSvc:          sigSvc,
		events:          events,
		metrics:         metrics,
		notificationURL: notificationURL,
		eventTTL:        eventTTL,
		claimTTL:        DefaultClaimTTL,
		log:             log,
	}
}

// Handle authenticates body against signature, then applies the event.
// Nothing is parsed or written before the signature has been verified.
func (s *WebhookServiceImpl) Handle(ctx context.Context, body []byte, signature string) (*domain.WebhookAck, error) {
	creds, err := s.vault.Get(ctx, domain.ServiceSquare)
	if err != nil {
		s.metrics.ObserveWebhook("unverified", vaultFailureLabel(err))
		s.log.Error().Err(err).Msg("webhook received but processor credentials are unavailable")
		return nil, vaultError(err)
	}
	if creds.WebhookSignatureKey == "" {
		s.metrics.ObserveWebhook("unverified", "not_configured")
		s.log.Error().Msg("webhook received but no signature key is configured")
		return nil, apperror.ErrProcessorNotConfigured()
	}

	signed := s.sigSvc.BuildCanonicalPayload(s.notificationURL, body)
	if !s.sigSvc.Verify(creds.WebhookSignatureKey, signed, signature) {
		s.metrics.ObserveWebhook("unverified", "invalid_signature")
		s.log.Warn().
			Int("body_bytes", len(body)).
			Bool("signature_present", signature != "").
			Msg("webhook signature mismatch")
		return nil, apperror.ErrInvalidSignature()
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.metrics.ObserveWebhook("unparsed", "malformed")
		return nil, apperror.ErrMalformedWebhook(err)
	}
	if event.Type == "" {
		s.metrics.ObserveWebhook("unparsed", "malformed")
		return nil, apperror.ErrMalformedWebhook(errors.New("missing event type"))
	}

	eventID := event.ID()
	claimed := false
	if eventID != "" {
		fresh, err := s.events.Claim(ctx, eventID, s.claimTTL)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("event_id", eventID).Msg("event store unavailable, processing without duplicate check")
		case !fresh:
			s.metrics.ObserveWebhook(event.Type, string(domain.WebhookOutcomeDuplicate))
			s.log.Info().Str("event_id", eventID).Str("type", event.Type).Msg("duplicate webhook delivery")
			return &domain.WebhookAck{Received: true, Duplicate: true, Outcome: domain.WebhookOutcomeDuplicate}, nil
		default:
			claimed = true
		}
	}

	outcome, err := s.dispatch(ctx, &event)
	if err != nil {
		if claimed {
			if rErr := s.events.Release(context.WithoutCancel(ctx), eventID); rErr != nil {
				s.log.Warn().Err(rErr).Str("event_id", eventID).Msg("could not release webhook event claim")
			}
		}
		s.metrics.ObserveWebhook(event.Type, "error")
		return nil, err
	}

	if claimed {
		if err := s.events.Complete(context.WithoutCancel(ctx), eventID, s.eventTTL); err != nil {
			s.log.Warn().Err(err).Str("event_id", eventID).Msg("could not mark webhook event processed")
		}
	}

	s.metrics.ObserveWebhook(event.Type, string(outcome))
	return &domain.WebhookAck{Received: true, Outcome: outcome}, nil
}

func (s *WebhookServiceImpl) dispatch(ctx context.Context, event *domain.WebhookEvent) (domain.WebhookOutcome, error) {
	log := s.log.With().Str("event_id", event.ID()).Str("type", event.Type).Logger()

	switch event.Type {
	case domain.EventPaymentCreated, domain.EventPaymentUpdated:
		return s.reconcilePayment(ctx, event, log)
	case domain.EventOrderCreated, domain.EventOrderUpdated:
		log.Info().Str("order_id", event.Data.ID).Msg("order event received")
		return domain.WebhookOutcomeIgnored, nil
	default:
		log.Info().Msg("unhandled webhook event type")
		return domain.WebhookOutcomeIgnored, nil
	}
}

func (s *WebhookServiceImpl) reconcilePayment(ctx context.Context, event *domain.WebhookEvent, log zerolog.Logger) (domain.WebhookOutcome, error) {
	snap, err := paymentSnapshot(event.Data.Object)
	if err != nil {
		return "", apperror.ErrMalformedWebhook(err)
	}
	log = log.With().Str("payment_id", snap.ID).Logger()

	status, ok := domain.ParseTransactionStatus(snap.Status)
	if !ok {
		log.Warn().Str("status", snap.Status).Msg("unrecognized payment status, ledger not changed")
		return domain.WebhookOutcomeAmbiguous, nil
	}

	txn, err := s.txRepo.GetByProcessorPaymentID(ctx, snap.ID)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("lookup transaction: %w", err))
	}
	if txn == nil {
		log.Warn().Str("status", string(status)).Msg("webhook for unknown payment, ledger not changed")
		return domain.WebhookOutcomeUnknown, nil
	}

	if txn.Status == status {
		return domain.WebhookOutcomeNoop, nil
	}
	if !txn.Status.CanTransitionTo(status) {
		log.Info().
			Str("current", string(txn.Status)).
			Str("reported", string(status)).
			Msg("stale or out-of-order status ignored")
		return domain.WebhookOutcomeNoop, nil
	}

	updated, err := s.txRepo.UpdateStatus(ctx, snap.ID, status, domain.StatusesBefore(status))
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("update transaction status: %w", err))
	}
	if !updated {
		log.Info().Str("reported", string(status)).Msg("status changed concurrently, update skipped")
		return domain.WebhookOutcomeNoop, nil
	}

	log.Info().
		Str("from", string(txn.Status)).
		Str("to", string(status)).
		Str("processor_updated_at", snap.UpdatedAt).
		Msg("transaction status reconciled")
	return domain.WebhookOutcomeApplied, nil
}

// paymentSnapshot accepts both data.object.payment and a bare data.object.
func paymentSnapshot(raw json.RawMessage) (*domain.PaymentSnapshot, error) {
	if len(raw) == 0 {
		return nil, errors.New("missing data.object")
	}

	var wrapped struct {
		Payment *domain.PaymentSnapshot `json:"payment"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode data.object: %w", err)
	}
	snap := wrapped.Payment
	if snap == nil {
		snap = &domain.PaymentSnapshot{}
		if err := json.Unmarshal(raw, snap); err != nil {
			return nil, fmt.Errorf("decode data.object: %w", err)
		}
	}
	if snap.ID == "" {
		return nil, errors.New("payment id missing")
	}
	return snap, nil
}
