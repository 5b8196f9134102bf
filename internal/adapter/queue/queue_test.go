package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gds-payments/config"
	"gds-payments/internal/adapter/metrics"
	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"
	"gds-payments/internal/core/ports/mocks"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type enqueued struct {
	task *asynq.Task
	opts map[asynq.OptionType]interface{}
}

type fakeEnqueuer struct {
	calls []enqueued
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	values := make(map[asynq.OptionType]interface{}, len(opts))
	for _, o := range opts {
		values[o.Type()] = o.Value()
	}
	f.calls = append(f.calls, enqueued{task: task, opts: values})
	return &asynq.TaskInfo{ID: "x"}, nil
}

var testQueueConfig = config.QueueConfig{Name: "payments", MaxRetry: 8, Concurrency: 2}

func TestClient_EnqueueReceipt(t *testing.T) {
	fake := &fakeEnqueuer{}
	c := NewClient(fake, testQueueConfig)

	err := c.EnqueueReceipt(context.Background(), domain.Receipt{PaymentID: "pay_1", Email: "a@b.co", Amount: 5000, Currency: "USD"})
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)

	call := fake.calls[0]
	assert.Equal(t, TypeReceiptSend, call.task.Type())
	assert.Equal(t, "payments", call.opts[asynq.QueueOpt])
	assert.Equal(t, "receipt:pay_1", call.opts[asynq.TaskIDOpt])
	assert.Equal(t, 8, call.opts[asynq.MaxRetryOpt])

	var got domain.Receipt
	require.NoError(t, json.Unmarshal(call.task.Payload(), &got))
	assert.Equal(t, "pay_1", got.PaymentID)
}

func TestClient_EnqueueLedgerRepair(t *testing.T) {
	fake := &fakeEnqueuer{}
	c := NewClient(fake, testQueueConfig)

	require.NoError(t, c.EnqueueLedgerRepair(context.Background(), domain.Transaction{ProcessorPaymentID: "pay_2", Amount: 100}))
	require.Len(t, fake.calls, 1)
	assert.Equal(t, TypeLedgerRepair, fake.calls[0].task.Type())
	assert.Equal(t, "ledger:pay_2", fake.calls[0].opts[asynq.TaskIDOpt])
	assert.Equal(t, 24, fake.calls[0].opts[asynq.MaxRetryOpt])
}

func TestClient_DuplicateIsNotAnError(t *testing.T) {
	c := NewClient(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, testQueueConfig)
	assert.NoError(t, c.EnqueueReceipt(context.Background(), domain.Receipt{PaymentID: "pay_1"}))
}

func TestClient_EnqueueError(t *testing.T) {
	c := NewClient(&fakeEnqueuer{err: errors.New("redis down")}, testQueueConfig)
	err := c.EnqueueLedgerRepair(context.Background(), domain.Transaction{ProcessorPaymentID: "pay_3"})
	assert.ErrorContains(t, err, "enqueue ledger:repair")
}

func newTestHandlers(t *testing.T) (*Handlers, *mocks.MockNotificationService, *mocks.MockPaymentService) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotificationService(ctrl)
	payments := mocks.NewMockPaymentService(ctrl)
	return NewHandlers(notifier, payments, metrics.Nop{}, zerolog.Nop()), notifier, payments
}

func TestHandleReceipt(t *testing.T) {
	h, notifier, _ := newTestHandlers(t)
	task, _, err := NewReceiptTask(domain.Receipt{PaymentID: "pay_1", Email: "a@b.co"})
	require.NoError(t, err)

	notifier.EXPECT().SendReceipt(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, r domain.Receipt) error {
			assert.Equal(t, "pay_1", r.PaymentID)
			return nil
		})
	assert.NoError(t, h.HandleReceipt(context.Background(), task))

	notifier.EXPECT().SendReceipt(gomock.Any(), gomock.Any()).Return(ports.ErrMailDisabled)
	assert.NoError(t, h.HandleReceipt(context.Background(), task))

	sendErr := errors.New("smtp relay 503")
	notifier.EXPECT().SendReceipt(gomock.Any(), gomock.Any()).Return(sendErr)
	assert.ErrorIs(t, h.HandleReceipt(context.Background(), task), sendErr)
}

func TestHandleReceipt_BadPayloadSkipsRetry(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	err := h.HandleReceipt(context.Background(), asynq.NewTask(TypeReceiptSend, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleLedgerRepair(t *testing.T) {
	h, _, payments := newTestHandlers(t)
	task, _, err := NewLedgerRepairTask(domain.Transaction{
		ProcessorPaymentID: "pay_9",
		Amount:             5000,
		Currency:           "USD",
		Status:             domain.TransactionStatusCompleted,
	})
	require.NoError(t, err)

	payments.EXPECT().RepairLedger(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, txn *domain.Transaction) error {
			assert.Equal(t, "pay_9", txn.ProcessorPaymentID)
			assert.Equal(t, int64(5000), txn.Amount)
			assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
			return nil
		})
	assert.NoError(t, h.HandleLedgerRepair(context.Background(), task))

	dbErr := errors.New("db still down")
	payments.EXPECT().RepairLedger(gomock.Any(), gomock.Any()).Return(dbErr)
	assert.ErrorIs(t, h.HandleLedgerRepair(context.Background(), task), dbErr)
}

func TestHandleLedgerRepair_InvalidPayloads(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	err := h.HandleLedgerRepair(context.Background(), asynq.NewTask(TypeLedgerRepair, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleLedgerRepair(context.Background(), asynq.NewTask(TypeLedgerRepair, []byte(`{"amount":1}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMux_RoutesTaskTypes(t *testing.T) {
	h, notifier, _ := newTestHandlers(t)
	notifier.EXPECT().SendReceipt(gomock.Any(), gomock.Any()).Return(nil)

	task, _, err := NewReceiptTask(domain.Receipt{PaymentID: "pay_1", Email: "a@b.co"})
	require.NoError(t, err)
	assert.NoError(t, h.Mux().ProcessTask(context.Background(), task))

	err = h.Mux().ProcessTask(context.Background(), asynq.NewTask("unknown:type", nil))
	assert.Error(t, err)
}

func TestRedisConnOpt(t *testing.T) {
	opt := RedisConnOpt(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2})

	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
}
