package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadside-assist-api/internal/models"
)

type rejectionRecorder struct {
	paths []string
}

func (r *rejectionRecorder) RateLimited(path string) { r.paths = append(r.paths, path) }

func limitedRouter(limiter *RateLimiter, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			SetClaims(c, &models.JWTClaims{UserID: userID, Role: models.RoleCustomer})
		}
		c.Next()
	})
	r.POST("/emergencies", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func post(r *gin.Engine) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/emergencies", nil)
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	recorder := &rejectionRecorder{}
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMin: 1, Burst: 2}, recorder)
	r := limitedRouter(limiter, "cust-alice")

	assert.Equal(t, http.StatusCreated, post(r))
	assert.Equal(t, http.StatusCreated, post(r))
	assert.Equal(t, http.StatusTooManyRequests, post(r))
	require.Len(t, recorder.paths, 1)
	assert.Equal(t, "/emergencies", recorder.paths[0])
}

func TestRateLimiterKeysPerPrincipal(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMin: 1, Burst: 1}, nil)

	assert.Equal(t, http.StatusCreated, post(limitedRouter(limiter, "cust-alice")))
	assert.Equal(t, http.StatusTooManyRequests, post(limitedRouter(limiter, "cust-alice")))
	assert.Equal(t, http.StatusCreated, post(limitedRouter(limiter, "cust-bob")))
}

func TestRateLimiterEvictsBeyondCapacity(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMin: 1, Burst: 1, MaxTrackedKeys: 1}, nil)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
	// "a" was evicted and starts with a fresh bucket
	assert.True(t, limiter.Allow("a"))
}
