package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"oficina/internal/core/apperror"
	"oficina/internal/core/tenant"
)

// ActiveGarage rejects requests of garages that are suspended or gone.
// It runs after Auth, which has already put the claimed garage in context.
func ActiveGarage(registry tenant.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		claimed, err := tenant.RequireGarage(ctx)
		if err != nil {
			abortUnauthorized(c, "token has no garage")
			return
		}

		if _, err := tenant.Resolve(ctx, registry, claimed.UUID()); err != nil {
			switch {
			case errors.Is(err, tenant.ErrGarageNotActive), errors.Is(err, tenant.ErrGarageNotFound):
				_ = c.Error(apperror.NewForbidden("garage is not active").WithDetail("garage_id", claimed.String()))
			default:
				_ = c.Error(apperror.NewInternal(err).WithDetail("component", "garage_registry"))
			}
			c.Abort()
			return
		}
		c.Next()
	}
}
