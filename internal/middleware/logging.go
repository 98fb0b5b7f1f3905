package middleware

import (
	"github.com/gin-gonic/gin"

	ctxutil "github.com/Payphone-Digital/auth/pkg/context"
	"github.com/Payphone-Digital/auth/pkg/logger"
)

// RequestLogger logs one line per request completion with method, path,
// status and elapsed time. It runs after RequestContext so the request ID
// and client IP come along for free.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ctx := c.Request.Context()
		builder := logger.InfoWithContext(ctx, "Request completed")
		if c.Writer.Status() >= 500 {
			builder = logger.ErrorWithContext(ctx, "Request failed")
		} else if c.Writer.Status() >= 400 {
			builder = logger.WarnWithContext(ctx, "Request rejected")
		}

		builder.
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Int("status_code", c.Writer.Status()).
			Int("response_size", c.Writer.Size()).
			Duration(ctxutil.GetDuration(ctx)).
			Log()
	}
}
