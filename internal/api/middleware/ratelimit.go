package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/bookbot/internal/metrics"
	"github.com/yoockh/bookbot/internal/utils"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects with 429 once the client IP spends its budget for the
// route. A nil limiter disables the check.
func RateLimit(l Limiter, retryAfterSeconds int, m *metrics.Metrics, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		key := c.FullPath() + ":" + c.ClientIP()
		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil && log != nil {
			log.WithError(err).WithField("key", key).Warn("rate limiter unavailable, denying")
		}
		if !ok {
			m.RateLimited(c.FullPath())
			if retryAfterSeconds > 0 {
				c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apiError{
				Code:    utils.CodeTooManyRequests,
				Message: "too many requests, try again later",
			})
			return
		}
		c.Next()
	}
}
