package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"gds-payments/internal/core/domain"
	"gds-payments/internal/core/ports"
	"gds-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful write operations after the handler has run.
// Handlers may set CtxResourceID to name the affected record.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		var actorID *string
		if actor, ok := ActorID(c); ok {
			actorID = &actor
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString(response.RequestIDKey),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/payments" && method == http.MethodPost:
		return domain.AuditActionPaymentSubmitted, "transaction"
	case path == "/api/v1/admin/integrations/square" && method == http.MethodPut:
		return domain.AuditActionCredentialUpserted, "integration_credential"
	case path == "/api/v1/admin/integrations/square/test" && method == http.MethodPost:
		return domain.AuditActionCredentialTested, "integration_credential"
	}
	return "", ""
}
