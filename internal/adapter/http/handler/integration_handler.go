package handler

import (
	"gds-payments/internal/adapter/http/dto"
	"gds-payments/internal/adapter/http/middleware"
	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"
	"gds-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// IntegrationHandler manages processor credentials for administrators.
type IntegrationHandler struct {
	integrationSvc ports.IntegrationService
}

// NewIntegrationHandler creates a new IntegrationHandler.
func NewIntegrationHandler(integrationSvc ports.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{integrationSvc: integrationSvc}
}

// Upsert handles PUT /api/v1/admin/integrations/square.
func (h *IntegrationHandler) Upsert(c *gin.Context) {
	var req dto.UpsertCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	var actor *string
	if id, ok := middleware.ActorID(c); ok {
		actor = &id
	}

	status, err := h.integrationSvc.Upsert(c.Request.Context(), toCredentialPayload(req), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, domain.ServiceSquare)
	response.OK(c, status)
}

// Status handles GET /api/v1/admin/integrations/square.
func (h *IntegrationHandler) Status(c *gin.Context) {
	status, err := h.integrationSvc.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Test handles POST /api/v1/admin/integrations/square/test. With a body the
// candidate credentials are checked and discarded; without one the stored
// credentials are checked.
func (h *IntegrationHandler) Test(c *gin.Context) {
	c.Set(middleware.CtxResourceID, domain.ServiceSquare)

	if c.Request.ContentLength == 0 {
		result, err := h.integrationSvc.TestStored(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, result)
		return
	}

	var req dto.UpsertCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	result := h.integrationSvc.TestCredentials(c.Request.Context(), toCredentialPayload(req))
	response.OK(c, result)
}

func toCredentialPayload(req dto.UpsertCredentialRequest) domain.CredentialPayload {
	return domain.CredentialPayload{
		Environment:         domain.Environment(req.Environment),
		ApplicationID:       req.ApplicationID,
		AccessToken:         req.AccessToken,
		LocationID:          req.LocationID,
		WebhookSignatureKey: req.WebhookSignatureKey,
	}
}
