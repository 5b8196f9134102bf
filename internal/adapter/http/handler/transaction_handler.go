package handler

import (
	"strings"
	"time"

	"gds-payments/internal/adapter/http/dto"
	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"
	"gds-payments/pkg/apperror"
	"gds-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// TransactionHandler serves read-only ledger queries to administrators.
type TransactionHandler struct {
	reportingSvc ports.ReportingService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(reportingSvc ports.ReportingService) *TransactionHandler {
	return &TransactionHandler{reportingSvc: reportingSvc}
}

// List handles GET /api/v1/admin/transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	var q dto.TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}

	params := ports.TransactionListParams{
		Page:     q.Page,
		PageSize: q.Limit,
		Search:   strings.TrimSpace(q.Q),
	}
	if params.Page == 0 {
		params.Page = defaultPage
	}
	if params.PageSize == 0 {
		params.PageSize = defaultLimit
	}
	if q.Status != "" {
		status := domain.TransactionStatus(q.Status)
		params.Status = &status
	}
	if q.UserID != "" {
		userID := q.UserID
		params.UserID = &userID
	}

	var err error
	if params.From, err = parseTimeParam("from", q.From, false); err != nil {
		response.Error(c, err)
		return
	}
	if params.To, err = parseTimeParam("to", q.To, true); err != nil {
		response.Error(c, err)
		return
	}

	txns, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}
	response.Page(c, items, params.Page, params.PageSize, total)
}

// Get handles GET /api/v1/admin/transactions/:paymentId.
func (h *TransactionHandler) Get(c *gin.Context) {
	txn, err := h.reportingSvc.GetTransaction(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(txn))
}

// Stats handles GET /api/v1/admin/transactions/stats.
func (h *TransactionHandler) Stats(c *gin.Context) {
	currency := strings.ToUpper(c.DefaultQuery("currency", "USD"))
	period := c.DefaultQuery("period", "all")

	stats, err := h.reportingSvc.GetStats(c.Request.Context(), currency, period)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.StatsResponse{
		Currency:        stats.Currency,
		Period:          period,
		Total:           stats.Total,
		Pending:         stats.Pending,
		Approved:        stats.Approved,
		Completed:       stats.Completed,
		Canceled:        stats.Canceled,
		Failed:          stats.Failed,
		CompletedAmount: stats.CompletedAmount,
	})
}

// parseTimeParam accepts RFC 3339 or a plain date. A plain date used as an
// upper bound covers the whole day.
func parseTimeParam(name, raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperror.Validation(name + " must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:                 tx.ID.String(),
		ProcessorPaymentID: tx.ProcessorPaymentID,
		UserID:             tx.UserID,
		ItemID:             tx.ItemID,
		Amount:             tx.Amount,
		Currency:           tx.Currency,
		Status:             string(tx.Status),
		CardBrand:          tx.PaymentMethod.Brand,
		CardLast4:          tx.PaymentMethod.Last4,
		ReceiptURL:         tx.ReceiptURL,
		CreatedAt:          tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          tx.UpdatedAt.Format(time.RFC3339),
	}
	if tx.CheckoutType != nil {
		s := string(*tx.CheckoutType)
		resp.CheckoutType = &s
	}
	return resp
}
