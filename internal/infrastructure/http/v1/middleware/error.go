package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"oficina/internal/core/apperror"
	appctx "oficina/internal/core/context"
	"oficina/internal/infrastructure/http/v1/dto"
	"oficina/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		ctx := c.Request.Context()
		if appErr, ok := apperror.AsAppError(err); ok {
			status := appErr.HTTPStatus
			if status == 0 {
				status = http.StatusInternalServerError
			}
			if status >= http.StatusInternalServerError {
				logger.Error(ctx, "request failed",
					"code", appErr.Code,
					"path", c.FullPath(),
					"error", err,
				)
			} else if appErr.Err != nil {
				logger.Warn(ctx, "request rejected",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			c.JSON(status, dto.ErrorResponse{Error: dto.ErrorBody{
				Code:    appErr.Code,
				Message: appErr.Message,
				Details: appErr.Details,
			}})
			return
		}

		// Unknown error - log and return generic message
		logger.Error(ctx, "unhandled error",
			"path", c.FullPath(),
			"error", err,
		)

		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: dto.ErrorBody{
			Code:    apperror.CodeInternal,
			Message: "Internal server error",
			Details: map[string]any{"request_id": appctx.GetRequestID(ctx)},
		}})
	}
}
