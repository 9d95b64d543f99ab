package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/response"
)

// RateLimitConfig sizes the per caller token buckets.
type RateLimitConfig struct {
	RequestsPerMin int
	Burst          int
	MaxTrackedKeys int
	IdleTTL        time.Duration
}

// RejectionCounter is notified when a request is throttled.
type RejectionCounter interface {
	RateLimited(path string)
}

// RateLimiter keeps one token bucket per caller. Callers are keyed by principal id when
// authenticated and by client IP otherwise. Idle buckets are evicted.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	rejected RejectionCounter
}

// NewRateLimiter builds a limiter; zero values fall back to 10 requests per minute with a burst of 3.
func NewRateLimiter(cfg RateLimitConfig, rejected RejectionCounter) *RateLimiter {
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	if cfg.MaxTrackedKeys <= 0 {
		cfg.MaxTrackedKeys = 10000
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		buckets:  expirable.NewLRU[string, *rate.Limiter](cfg.MaxTrackedKeys, nil, cfg.IdleTTL),
		limit:    rate.Every(time.Minute / time.Duration(cfg.RequestsPerMin)),
		burst:    cfg.Burst,
		rejected: rejected,
	}
}

// Allow consumes one token for key.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.buckets.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	// re-adding refreshes the idle expiry
	l.buckets.Add(key, limiter)
	l.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects callers that exhausted their bucket with 429.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if claims := Claims(c); claims != nil {
			key = "user:" + claims.UserID
		}
		if !l.Allow(key) {
			if l.rejected != nil {
				l.rejected.RateLimited(c.FullPath())
			}
			c.Header("Retry-After", "60")
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
