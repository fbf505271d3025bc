package server

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kograph/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/kograph/internal/observability/metrics"
	"github.com/smallbiznis/kograph/internal/ratelimit"
	"go.uber.org/zap"
)

const rateLimitReasonRate = "rate"

// WebhookRateLimit buckets processor callbacks by client address.
func (s *Server) WebhookRateLimit() gin.HandlerFunc {
	return s.rateLimit(ratelimit.EndpointWebhook, func(c *gin.Context) string {
		return c.ClientIP()
	}, s.limiter.AllowWebhook)
}

// APICheckoutRateLimit buckets merchant checkout creation by API key. It must
// run after APIKeyRequired.
func (s *Server) APICheckoutRateLimit() gin.HandlerFunc {
	return s.rateLimit(ratelimit.EndpointAPICheckout, apiKeyIDFromContext, s.limiter.AllowAPICheckout)
}

func (s *Server) rateLimit(
	endpoint string,
	subject func(*gin.Context) string,
	allow func(ctx context.Context, subject string) (ratelimit.Decision, error),
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		decision, err := allow(ctx, subject(c))
		if err != nil {
			logger.FromContext(ctx).Warn("rate limit check failed",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !decision.Allowed {
			denyRateLimit(c, endpoint, rateLimitReasonRate, decision.RetryAfter, s.obsMetrics)
			return
		}
		c.Next()
	}
}

func denyRateLimit(c *gin.Context, endpoint, reason string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)

	c.Header("Retry-After", retryAfterSeconds(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int64(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}
