package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"oficina/internal/core/apperror"
	"oficina/internal/infrastructure/ratelimit"
	"oficina/pkg/logger"
)

// publicRouteKey marks requests served without authentication.
const publicRouteKey = "public_route"

// Public marks the route as unauthenticated so its raw path is not logged.
func Public() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(publicRouteKey, true)
		c.Next()
	}
}

// RateLimit throttles requests per client IP. A limiter failure lets the
// request through.
func RateLimit(limiter ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		decision, err := limiter.Allow(ctx, scope+":"+c.ClientIP())
		if err != nil {
			logger.Warn(ctx, "rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}

		if !decision.Allowed {
			seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			_ = c.Error(apperror.NewRateLimited(seconds))
			c.Abort()
			return
		}
		if decision.Remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}
		c.Next()
	}
}
