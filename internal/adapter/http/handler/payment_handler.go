package handler

import (
	"gds-payments/internal/adapter/http/dto"
	"gds-payments/internal/adapter/http/middleware"
	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"
	"gds-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles storefront payment submissions.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// Submit handles POST /api/v1/payments.
func (h *PaymentHandler) Submit(c *gin.Context) {
	var req dto.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.paymentSvc.Submit(c.Request.Context(), toSubmitRequest(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.PaymentID)
	response.OK(c, dto.SubmitPaymentResponse{
		PaymentID:  result.PaymentID,
		Status:     string(result.Status),
		ReceiptURL: result.ReceiptURL,
	})
}

func toSubmitRequest(req dto.SubmitPaymentRequest) domain.SubmitPaymentRequest {
	out := domain.SubmitPaymentRequest{
		PaymentMethodToken: req.PaymentMethodToken,
		Amount:             req.Amount,
		Currency:           req.Currency,
		LocationID:         req.LocationID,
	}
	if refs := req.ContextRefs; refs != nil {
		out.Refs = domain.ContextRefs{
			UserID:        refs.UserID,
			ItemID:        refs.ItemID,
			CheckoutType:  domain.CheckoutType(refs.CheckoutType),
			CustomerEmail: refs.CustomerEmail,
			CustomerName:  refs.CustomerName,
			Note:          refs.Note,
		}
	}
	return out
}
