package handler

import (
	"io"

	"gds-payments/internal/adapter/http/dto"
	"gds-payments/internal/core/ports"
	"gds-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderSquareSignature carries base64(HMAC-SHA256(key, notification URL + body)).
const HeaderSquareSignature = "X-Square-Hmacsha256-Signature"

// WebhookHandler receives processor notifications.
type WebhookHandler struct {
	webhookSvc ports.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// Square handles POST /api/v1/webhooks/square. The body is passed on
// byte-for-byte because the signature covers the exact bytes received.
func (h *WebhookHandler) Square(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, bindError(err))
		return
	}

	ack, err := h.webhookSvc.Handle(c.Request.Context(), body, c.GetHeader(HeaderSquareSignature))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WebhookAckResponse{
		Received:  ack.Received,
		Duplicate: ack.Duplicate,
	})
}
