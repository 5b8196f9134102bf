package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gds-payments/config"
	"gds-payments/internal/core/domain"

	"github.com/hibiken/asynq"
)

// enqueuer is the part of *asynq.Client the producer uses.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client implements ports.TaskQueue.
type Client struct {
	enq      enqueuer
	queue    string
	maxRetry int
}

// NewClient wraps an asynq client with the configured queue and retry budget.
func NewClient(enq enqueuer, cfg config.QueueConfig) *Client {
	return &Client{enq: enq, queue: cfg.Name, maxRetry: cfg.MaxRetry}
}

// EnqueueReceipt schedules the confirmation email for a captured payment.
func (c *Client) EnqueueReceipt(ctx context.Context, receipt domain.Receipt) error {
	task, id, err := NewReceiptTask(receipt)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, id, c.maxRetry, 24*time.Hour)
}

// EnqueueLedgerRepair schedules a retry of a ledger insert that failed after
// the processor confirmed the charge. It keeps retrying for longer than receipts.
func (c *Client) EnqueueLedgerRepair(ctx context.Context, txn domain.Transaction) error {
	task, id, err := NewLedgerRepairTask(txn)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, id, c.maxRetry*3, 7*24*time.Hour)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, id string, maxRetry int, retention time.Duration) error {
	_, err := c.enq.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(id),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(retention),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}
