package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Handlers processes the tasks produced by Client.
type Handlers struct {
	notifier ports.NotificationService
	payments ports.PaymentService
	metrics  ports.Metrics
	log      zerolog.Logger
}

func NewHandlers(notifier ports.NotificationService, payments ports.PaymentService, metrics ports.Metrics, log zerolog.Logger) *Handlers {
	return &Handlers{notifier: notifier, payments: payments, metrics: metrics, log: log}
}

// Mux routes each task type to its handler.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReceiptSend, h.HandleReceipt)
	mux.HandleFunc(TypeLedgerRepair, h.HandleLedgerRepair)
	return mux
}

// HandleReceipt sends one confirmation email. Bad payloads and a disabled
// mailer are not retried.
func (h *Handlers) HandleReceipt(ctx context.Context, t *asynq.Task) error {
	var receipt domain.Receipt
	if err := json.Unmarshal(t.Payload(), &receipt); err != nil {
		h.metrics.ObserveTask(TypeReceiptSend, "invalid")
		return fmt.Errorf("decode receipt: %v: %w", err, asynq.SkipRetry)
	}

	err := h.notifier.SendReceipt(ctx, receipt)
	switch {
	case err == nil:
		h.metrics.ObserveTask(TypeReceiptSend, "ok")
		return nil
	case errors.Is(err, ports.ErrMailDisabled):
		h.metrics.ObserveTask(TypeReceiptSend, "skipped")
		return nil
	default:
		h.metrics.ObserveTask(TypeReceiptSend, "error")
		h.log.Warn().Err(err).Str("payment_id", receipt.PaymentID).Msg("receipt delivery failed")
		return err
	}
}

// HandleLedgerRepair re-inserts a ledger row. The insert is idempotent, so a
// row written meanwhile by another path is left as is.
func (h *Handlers) HandleLedgerRepair(ctx context.Context, t *asynq.Task) error {
	var txn domain.Transaction
	if err := json.Unmarshal(t.Payload(), &txn); err != nil {
		h.metrics.ObserveTask(TypeLedgerRepair, "invalid")
		h.log.Error().Err(err).Bytes("payload", t.Payload()).Msg("undecodable ledger repair task")
		return fmt.Errorf("decode transaction: %v: %w", err, asynq.SkipRetry)
	}
	if txn.ProcessorPaymentID == "" {
		h.metrics.ObserveTask(TypeLedgerRepair, "invalid")
		return fmt.Errorf("ledger repair without payment id: %w", asynq.SkipRetry)
	}

	if err := h.payments.RepairLedger(ctx, &txn); err != nil {
		h.metrics.ObserveTask(TypeLedgerRepair, "error")
		h.log.Error().Err(err).Str("payment_id", txn.ProcessorPaymentID).Msg("ledger repair attempt failed")
		return err
	}
	h.metrics.ObserveTask(TypeLedgerRepair, "ok")
	return nil
}
