package service

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"
	"gds-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxNoteLength = 500

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	txRepo    ports.TransactionRepository
	vault     ports.CredentialVault
	processor ports.PaymentProcessor
	tasks     ports.TaskQueue
	metrics   ports.Metrics
	log       zerolog.Logger

	newIdempotencyKey func() string
	now               func() time.Time
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	txRepo ports.TransactionRepository,
	vault ports.CredentialVault,
	processor ports.PaymentProcessor,
	tasks ports.TaskQueue,
	metrics ports.Metrics,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		txRepo:            txRepo,
		vault:             vault,
		processor:         processor,
		tasks:             tasks,
		metrics:           metrics,
		log:               log,
		newIdempotencyKey: uuid.NewString,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Submit charges the payment method once and records the ledger row on success.
//
// Each call sends a fresh idempotency key, so a client retry after a lost
// response is a new charge attempt. Once the processor confirms the charge the
// caller always gets success, even if the ledger write fails.
func (s *PaymentServiceImpl) Submit(ctx context.Context, req domain.SubmitPaymentRequest) (*domain.SubmitPaymentResult, error) {
	req, err := validateSubmit(req)
	if err != nil {
		s.metrics.ObservePayment("invalid")
		return nil, err
	}

	// The charge and its ledger write outlive a client disconnect; the
	// processor client timeout still bounds the call.
	ctx = context.WithoutCancel(ctx)

	creds, err := s.vault.Get(ctx, domain.ServiceSquare)
	if err != nil {
		s.metrics.ObservePayment(vaultFailureLabel(err))
		s.log.Error().Err(err).Msg("processor credentials unavailable")
		return nil, vaultError(err)
	}

	charge := domain.ChargeRequest{
		SourceID:       req.PaymentMethodToken,
		Amount:         req.Amount,
		Currency:       req.Currency,
		LocationID:     req.LocationID,
		IdempotencyKey: s.newIdempotencyKey(),
		Note:           paymentNote(req.Refs),
		BuyerEmail:     req.Refs.CustomerEmail,
		ReferenceID:    req.Refs.ItemID,
	}
	if charge.LocationID == "" {
		charge.LocationID = creds.LocationID
	}

	result := s.processor.CreatePayment(ctx, *creds, charge)
	s.metrics.ObservePayment(result.Kind.String())

	switch result.Kind {
	case domain.PaymentResultSuccess:
	case domain.PaymentResultDecline:
		s.log.Warn().
			Str("idempotency_key", charge.IdempotencyKey).
			Str("code", result.Decline.Code).
			Str("category", result.Decline.Category).
			Msg("payment declined by processor")
		return nil, declineError(result.Decline)
	case domain.PaymentResultTransportError:
		s.log.Error().Err(result.Err).
			Str("idempotency_key", charge.IdempotencyKey).
			Msg("processor unreachable")
		return nil, apperror.ErrPaymentUnavailable(result.Err)
	default:
		s.log.Error().Err(result.Err).
			Str("idempotency_key", charge.IdempotencyKey).
			Bytes("raw_response", result.Raw).
			Msg("processor response could not be interpreted")
		return nil, apperror.ErrPaymentUnconfirmed(result.Err)
	}

	p := result.Payment
	if p.Amount != req.Amount || !strings.EqualFold(p.Currency, req.Currency) {
		s.log.Error().
			Str("payment_id", p.ID).
			Int64("requested_amount", req.Amount).
			Int64("charged_amount", p.Amount).
			Str("requested_currency", req.Currency).
			Str("charged_currency", p.Currency).
			Msg("processor charged a different amount than requested")
	}

	txn := s.newTransaction(req.Refs, p)
	s.recordTransaction(ctx, txn)
	s.dispatchReceipt(ctx, txn, req.Refs)

	s.log.Info().
		Str("payment_id", p.ID).
		Str("status", string(p.Status)).
		Int64("amount", p.Amount).
		Str("currency", p.Currency).
		Msg("payment captured")

	return &domain.SubmitPaymentResult{
		PaymentID:  p.ID,
		Status:     p.Status,
		ReceiptURL: p.ReceiptURL,
	}, nil
}

// RepairLedger inserts a row whose first write failed after a confirmed charge.
// It is safe to run more than once.
func (s *PaymentServiceImpl) RepairLedger(ctx context.Context, txn *domain.Transaction) error {
	inserted, err := s.txRepo.Create(ctx, txn)
	if err != nil {
		return fmt.Errorf("repair ledger row %s: %w", txn.ProcessorPaymentID, err)
	}
	s.log.Info().
		Str("payment_id", txn.ProcessorPaymentID).
		Bool("inserted", inserted).
		Msg("ledger row repaired")
	return nil
}

func (s *PaymentServiceImpl) newTransaction(refs domain.ContextRefs, p *domain.ProcessorPayment) *domain.Transaction {
	now := s.now()
	txn := &domain.Transaction{
		ID:                 uuid.New(),
		UserID:             optional(refs.UserID),
		ItemID:             optional(refs.ItemID),
		ProcessorPaymentID: p.ID,
		Amount:             p.Amount,
		Currency:           strings.ToUpper(p.Currency),
		Status:             p.Status,
		PaymentMethod:      p.PaymentMethod,
		ReceiptURL:         optional(p.ReceiptURL),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if refs.CheckoutType != "" {
		ct := refs.CheckoutType
		txn.CheckoutType = &ct
	}
	return txn
}

// recordTransaction never fails the request: the customer has been charged.
func (s *PaymentServiceImpl) recordTransaction(ctx context.Context, txn *domain.Transaction) {
	inserted, err := s.txRepo.Create(ctx, txn)
	if err != nil {
		s.metrics.IncLedgerWriteFailure()
		s.log.WithLevel(zerolog.FatalLevel).Err(err).
			Str("payment_id", txn.ProcessorPaymentID).
			Int64("amount", txn.Amount).
			Str("currency", txn.Currency).
			Str("status", string(txn.Status)).
			Msg("ledger write failed after successful charge, manual reconciliation required")

		if qErr := s.tasks.EnqueueLedgerRepair(ctx, *txn); qErr != nil {
			s.log.Error().Err(qErr).
				Str("payment_id", txn.ProcessorPaymentID).
				Msg("could not enqueue ledger repair")
		}
		return
	}
	if !inserted {
		s.log.Warn().
			Str("payment_id", txn.ProcessorPaymentID).
			Msg("ledger row already existed for processor payment")
	}
}

func (s *PaymentServiceImpl) dispatchReceipt(ctx context.Context, txn *domain.Transaction, refs domain.ContextRefs) {
	if refs.CustomerEmail == "" {
		return
	}
	receipt := domain.Receipt{
		PaymentID:    txn.ProcessorPaymentID,
		Amount:       txn.Amount,
		Currency:     txn.Currency,
		Email:        refs.CustomerEmail,
		CustomerName: refs.CustomerName,
		CheckoutType: refs.CheckoutType,
		ItemID:       refs.ItemID,
		CardBrand:    txn.PaymentMethod.Brand,
		CardLast4:    txn.PaymentMethod.Last4,
	}
	if txn.ReceiptURL != nil {
		receipt.ReceiptURL = *txn.ReceiptURL
	}

	if err := s.tasks.EnqueueReceipt(ctx, receipt); err != nil {
		s.log.Error().Err(err).
			Str("payment_id", txn.ProcessorPaymentID).
			Msg("receipt notification not queued")
	}
}

func validateSubmit(req domain.SubmitPaymentRequest) (domain.SubmitPaymentRequest, error) {
	req.PaymentMethodToken = strings.TrimSpace(req.PaymentMethodToken)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.LocationID = strings.TrimSpace(req.LocationID)
	req.Refs.CustomerEmail = strings.TrimSpace(req.Refs.CustomerEmail)
	req.Refs.CheckoutType = domain.CheckoutType(strings.ToLower(strings.TrimSpace(string(req.Refs.CheckoutType))))

	switch {
	case req.PaymentMethodToken == "":
		return req, apperror.Validation("paymentMethodToken is required")
	case req.Amount <= 0:
		return req, apperror.ErrInvalidAmount()
	case !currencyPattern.MatchString(req.Currency):
		return req, apperror.Validation("currency must be a 3-letter ISO 4217 code")
	case req.Refs.CheckoutType != "" && !req.Refs.CheckoutType.IsValid():
		return req, apperror.Validation("checkoutType must be adoption, service or product")
	case len(req.Refs.Note) > maxNoteLength:
		return req, apperror.Validation("note is too long")
	}
	if req.Refs.CustomerEmail != "" {
		if _, err := mail.ParseAddress(req.Refs.CustomerEmail); err != nil {
			return req, apperror.Validation("customerEmail is not a valid email address")
		}
	}
	return req, nil
}

func paymentNote(refs domain.ContextRefs) string {
	if refs.Note != "" {
		return refs.Note
	}
	switch refs.CheckoutType {
	case domain.CheckoutTypeAdoption:
		if refs.ItemID != "" {
			return "Puppy adoption for puppy " + refs.ItemID
		}
		return "Puppy adoption"
	case domain.CheckoutTypeService:
		return "Stud service payment"
	case domain.CheckoutTypeProduct:
		return "Product purchase"
	}
	return "Payment"
}

func declineError(d *domain.ProcessorDecline) error {
	switch d.Kind {
	case domain.DeclineInput:
		return apperror.ErrPaymentRejected(d.Message)
	case domain.DeclineConflict:
		return apperror.ErrPaymentConflict(d.Message)
	default:
		return apperror.ErrPaymentDeclined(d.Message)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
