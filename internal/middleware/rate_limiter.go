package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-directory/internal/handler"
)

type RateLimiterConfig struct {
	Enabled bool
	Rate    rate.Limit
	Burst   int
}

type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns nil when limiting is disabled.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if !config.Enabled {
		return nil
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(config.Rate, config.Burst),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl != nil && !rl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, handler.NewErrorResponse("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
