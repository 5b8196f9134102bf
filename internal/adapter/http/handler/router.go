package handler

import (
	"net/http"

	"gds-payments/internal/adapter/http/middleware"
	redisStore "gds-payments/internal/adapter/storage/redis"
	"gds-payments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc     ports.PaymentService
	WebhookSvc     ports.WebhookService
	IntegrationSvc ports.IntegrationService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	AdminRole      string
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimits     map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService      // nil = audit logging disabled
	HTTPMetrics    middleware.HTTPObserver // nil = request metrics disabled
	MetricsHandler http.Handler            // nil = no /metrics route
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := deps.RateLimits[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Storefront (public) ---
	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	v1.POST("/payments", rl(middleware.GroupPayments), middleware.RequireJSON(), paymentHandler.Submit)

	// --- Processor callbacks (signature verified in the service) ---
	webhookHandler := NewWebhookHandler(deps.WebhookSvc)
	v1.POST("/webhooks/square", webhookHandler.Square)

	// --- Administration (JWT bearer with admin role) ---
	admin := v1.Group("/admin",
		middleware.AdminAuth(deps.TokenSvc, deps.AdminRole, deps.Logger),
		rl(middleware.GroupAdmin),
	)

	integrationHandler := NewIntegrationHandler(deps.IntegrationSvc)
	integrations := admin.Group("/integrations/square")
	{
		integrations.GET("", integrationHandler.Status)
		integrations.PUT("", middleware.RequireJSON(), integrationHandler.Upsert)
		integrations.POST("/test", middleware.RequireJSON(), integrationHandler.Test)
	}

	if deps.ReportingSvc != nil {
		transactionHandler := NewTransactionHandler(deps.ReportingSvc)
		transactions := admin.Group("/transactions")
		{
			transactions.GET("", transactionHandler.List)
			transactions.GET("/stats", transactionHandler.Stats)
			transactions.GET("/:paymentId", transactionHandler.Get)
		}
	}

	return r
}
