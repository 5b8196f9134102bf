// Package queue runs post-commit side effects on asynq: receipt emails and
// ledger repair after a failed insert.
package queue

import (
	"encoding/json"
	"fmt"

	"gds-payments/internal/core/domain"

	"github.com/hibiken/asynq"
)

const (
	TypeReceiptSend  = "receipt:send"
	TypeLedgerRepair = "ledger:repair"
)

// NewReceiptTask builds a receipt:send task. The task id is derived from the
// payment so a repeated enqueue for the same payment is rejected by asynq.
func NewReceiptTask(r domain.Receipt) (*asynq.Task, string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, "", fmt.Errorf("encode receipt task: %w", err)
	}
	return asynq.NewTask(TypeReceiptSend, payload), "receipt:" + r.PaymentID, nil
}

// NewLedgerRepairTask carries the full ledger row that failed to insert.
func NewLedgerRepairTask(t domain.Transaction) (*asynq.Task, string, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, "", fmt.Errorf("encode ledger repair task: %w", err)
	}
	return asynq.NewTask(TypeLedgerRepair, payload), "ledger:" + t.ProcessorPaymentID, nil
}
