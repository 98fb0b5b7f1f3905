// middleware/rate_limit.go
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/auth/internal/constants"
	"github.com/Payphone-Digital/auth/pkg/logger"
	"github.com/Payphone-Digital/auth/pkg/redis"
)

// RateLimit enforces a fixed-window per-IP request cap backed by Redis, so
// the limit holds across replicas. A Redis failure lets the request through;
// throttling is protection, not a dependency.
func RateLimit(client *redis.Client, maxRequest int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := constants.CacheKeyRateLimit + c.ClientIP()

		count, err := client.IncrWindow(ctx, key, window)
		if err != nil {
			logger.WarnWithContext(ctx, "Rate limit check unavailable, admitting request").
				Err(err).
				Log()
			c.Next()
			return
		}

		remaining := int64(maxRequest) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequest))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > int64(maxRequest) {
			retryAfter := window
			if ttl, err := client.WindowTTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = ttl
			}

			logger.WarnWithContext(ctx, "Rate limit exceeded").
				String("path", c.Request.URL.Path).
				Int64("current_requests", count).
				Int("max_requests", maxRequest).
				Log()

			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, constants.BuildErrorResponse(constants.MsgTooManyReq, gin.H{
				"retry_after": retryAfter.Seconds(),
			}))
			c.Abort()
			return
		}

		c.Next()
	}
}
