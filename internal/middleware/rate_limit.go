package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// idle clients are forgotten after this long
const visitorTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client IP. Buckets live in a
// go-cache store, so clients that go quiet are evicted by its janitor.
type RateLimiter struct {
	name     string
	limit    rate.Limit
	burst    int
	visitors *gocache.Cache
}

// NewRateLimiter allows limit requests per second per client with bursts of burst.
// name labels the rejection metric and log lines.
func NewRateLimiter(name string, limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		name:     name,
		limit:    limit,
		burst:    burst,
		visitors: gocache.New(visitorTTL, time.Minute),
	}
}

func (rl *RateLimiter) bucket(ip string) *rate.Limiter {
	if v, ok := rl.visitors.Get(ip); ok {
		rl.visitors.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	// Add fails when a concurrent request created the bucket first
	if err := rl.visitors.Add(ip, limiter, gocache.DefaultExpiration); err != nil {
		if v, ok := rl.visitors.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Allow reports whether ip may make another request now
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.bucket(ip).Allow()
}

// Middleware answers 429 once a client has spent its burst
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if rl.Allow(ip) {
			c.Next()
			return
		}

		metrics.RateLimitedRequests.WithLabelValues(rl.name).Inc()
		logger.Warn("Rate limit exceeded",
			zap.String("limiter", rl.name),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", ip))
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "Too many requests. Please try again later.",
		})
	}
}
