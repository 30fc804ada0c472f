package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mystore/internal/core/apperror"
	"mystore/pkg/logger"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler renders the last error attached to the context. Handlers
// only call c.Error; this is the single place responses are produced.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		status, body := RenderError(c, c.Errors.Last().Err)
		c.JSON(status, body)
	}
}

// RenderError maps err to a status and body. Causes of internal errors
// are logged and hidden from the client.
func RenderError(c *gin.Context, err error) (int, ErrorBody) {
	ctx := c.Request.Context()

	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil {
			logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		}
		body := ErrorBody{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			body.Details = map[string]any{"request_id": c.GetString(KeyRequestID)}
		}
		return appErr.HTTPStatus, body
	}

	logger.Error(ctx, "unhandled error", "error", err)
	return http.StatusInternalServerError, ErrorBody{
		Code:    apperror.CodeInternal,
		Message: "Internal server error",
		Details: map[string]any{"request_id": c.GetString(KeyRequestID)},
	}
}
