// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"mystore/internal/core/apperror"
	"mystore/pkg/logger"
)

// Recovery turns a panic into a 500. The stack is logged, never returned.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)

				appErr := apperror.NewInternal(fmt.Errorf("panic: %v", err))
				_ = c.Error(appErr)
				if c.Writer.Written() {
					c.Abort()
					return
				}
				status, body := RenderError(c, appErr)
				c.AbortWithStatusJSON(status, body)
			}
		}()
		c.Next()
	}
}
