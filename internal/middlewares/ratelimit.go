package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dembasy/jokko/pkg/ratelimit"
)

// RateLimitMiddleware caps requests per client within a time window.
// Authenticated requests are counted per user, anonymous ones per
// client IP.
func RateLimitMiddleware(limiter ratelimit.Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id, ok := UserID(c); ok {
			key = "user:" + id
		}

		allowed, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "rate limit check failed"})
			c.Abort()
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}
