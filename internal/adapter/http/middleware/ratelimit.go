package middleware

import (
	"fmt"
	"strconv"
	"time"

	"gds-payments/config"
	redisStore "gds-payments/internal/adapter/storage/redis"
	"gds-payments/pkg/apperror"
	"gds-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Rate limit groups.
const (
	GroupPayments = "payments"
	GroupAdmin    = "admin"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimitRules builds the per-group limits from configuration.
// Processor webhooks are never limited: a 429 only causes redelivery.
func RateLimitRules(cfg config.RateLimitConfig) map[string]RateLimitRule {
	rules := map[string]RateLimitRule{}
	if cfg.PaymentsPerMinute > 0 {
		rules[GroupPayments] = RateLimitRule{Limit: int64(cfg.PaymentsPerMinute), Window: time.Minute}
	}
	if cfg.AdminPerMinute > 0 {
		rules[GroupAdmin] = RateLimitRule{Limit: int64(cfg.AdminPerMinute), Window: time.Minute}
	}
	return rules
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Store failures let the request through.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", group, extractIdentifier(c))

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys administrators by subject and everyone else by client IP.
func extractIdentifier(c *gin.Context) string {
	if actor, ok := ActorID(c); ok {
		return "actor:" + actor
	}
	return "ip:" + c.ClientIP()
}
