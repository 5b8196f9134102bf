package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"
	"gds-payments/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReportingService_GetStats_All(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockTxRepo := mocks.NewMockTransactionRepository(ctrl)
	svc := NewReportingService(mockTxRepo)

	expected := &ports.TransactionStats{
		Currency:        "USD",
		Total:           10,
		Pending:         1,
		Completed:       8,
		Failed:          1,
		CompletedAmount: 400000,
	}
	mockTxRepo.EXPECT().GetStats(gomock.Any(), "USD", (*time.Time)(nil)).Return(expected, nil)

	result, err := svc.GetStats(context.Background(), "usd", "all")
	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestReportingService_GetStats_WithPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockTxRepo := mocks.NewMockTransactionRepository(ctrl)
	svc := &reportingService{
		txRepo: mockTxRepo,
		now:    func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) },
	}

	mockTxRepo.EXPECT().GetStats(gomock.Any(), "USD", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, since *time.Time) (*ports.TransactionStats, error) {
			require.NotNil(t, since)
			assert.Equal(t, time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC), *since)
			return &ports.TransactionStats{}, nil
		})

	_, err := svc.GetStats(context.Background(), "USD", "week")
	require.NoError(t, err)
}

func TestReportingService_GetStats_Invalid(t *testing.T) {
	svc := NewReportingService(mocks.NewMockTransactionRepository(gomock.NewController(t)))

	_, err := svc.GetStats(context.Background(), "USD", "year")
	assertAppError(t, err, "PAY_002")

	_, err = svc.GetStats(context.Background(), "dollars", "all")
	assertAppError(t, err, "PAY_002")
}

func TestReportingService_GetStats_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockTxRepo := mocks.NewMockTransactionRepository(ctrl)
	svc := NewReportingService(mockTxRepo)

	mockTxRepo.EXPECT().GetStats(gomock.Any(), "USD", gomock.Any()).Return(nil, errors.New("db down"))

	_, err := svc.GetStats(context.Background(), "USD", "day")
	assertAppError(t, err, "SYS_001")
}

func TestReportingService_ListTransactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockTxRepo := mocks.NewMockTransactionRepository(ctrl)
	svc := NewReportingService(mockTxRepo)

	status := domain.TransactionStatusCompleted
	params := ports.TransactionListParams{Status: &status, Search: "pay_", Page: 1, PageSize: 20}
	rows := []domain.Transaction{{ProcessorPaymentID: "pay_1"}, {ProcessorPaymentID: "pay_2"}}

	mockTxRepo.EXPECT().List(gomock.Any(), params).Return(rows, int64(2), nil)

	got, total, err := svc.ListTransactions(context.Background(), params)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(2), total)
}

func TestReportingService_ListTransactions_InvertedRange(t *testing.T) {
	svc := NewReportingService(mocks.NewMockTransactionRepository(gomock.NewController(t)))
	from := time.Now()
	to := from.Add(-time.Hour)

	_, _, err := svc.ListTransactions(context.Background(), ports.TransactionListParams{From: &from, To: &to})
	assertAppError(t, err, "PAY_002")
}

func TestReportingService_GetTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockTxRepo := mocks.NewMockTransactionRepository(ctrl)
	svc := NewReportingService(mockTxRepo)

	mockTxRepo.EXPECT().GetByProcessorPaymentID(gomock.Any(), "pay_1").
		Return(&domain.Transaction{ProcessorPaymentID: "pay_1"}, nil)
	txn, err := svc.GetTransaction(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "pay_1", txn.ProcessorPaymentID)

	mockTxRepo.EXPECT().GetByProcessorPaymentID(gomock.Any(), "pay_missing").Return(nil, nil)
	_, err = svc.GetTransaction(context.Background(), "pay_missing")
	assertAppError(t, err, "PAY_004")
}
