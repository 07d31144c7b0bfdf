package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"oficina/pkg/logger"
)

// Logger middleware logs HTTP requests with timing and status.
// Approval tokens travel in the path, so the route template is logged
// instead of the raw path for public routes.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.Request.URL.Path
		if c.GetBool(publicRouteKey) {
			path = c.FullPath()
		}

		log.WithContext(c.Request.Context()).Infow("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"error", c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}
