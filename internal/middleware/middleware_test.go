package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/logger"
)

type validatorFunc func(string) (*models.JWTClaims, error)

func (f validatorFunc) ValidateToken(token string) (*models.JWTClaims, error) { return f(token) }

var tokens = validatorFunc(func(token string) (*models.JWTClaims, error) {
	switch token {
	case "customer":
		return &models.JWTClaims{UserID: "cust-alice", Role: models.RoleCustomer}, nil
	case "admin":
		return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, nil
	}
	return nil, appErrors.Wrap(errors.New("bad"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
})

func serveWith(handlers []gin.HandlerFunc, path, target, auth string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET(path, append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"principal": c.GetString(logger.PrincipalKey)})
	})...)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRequiresBearerToken(t *testing.T) {
	chain := []gin.HandlerFunc{JWT(tokens)}

	assert.Equal(t, http.StatusUnauthorized, serveWith(chain, "/me", "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serveWith(chain, "/me", "/me", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serveWith(chain, "/me", "/me", "Bearer nope").Code)

	rec := serveWith(chain, "/me", "/me", "Bearer customer")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cust-alice")
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	chain := []gin.HandlerFunc{OptionalJWT(tokens)}

	assert.Equal(t, http.StatusOK, serveWith(chain, "/health", "/health", "Bearer nope").Code)
	assert.Contains(t, serveWith(chain, "/health", "/health", "Bearer admin").Body.String(), "admin-1")
}

func TestRBAC(t *testing.T) {
	adminOnly := []gin.HandlerFunc{JWT(tokens), RequireRoles(models.RoleAdmin)}
	assert.Equal(t, http.StatusForbidden, serveWith(adminOnly, "/stats", "/stats", "Bearer customer").Code)
	assert.Equal(t, http.StatusOK, serveWith(adminOnly, "/stats", "/stats", "Bearer admin").Code)

	self := []gin.HandlerFunc{JWT(tokens), RBAC(string(models.RoleAdmin), "SELF")}
	assert.Equal(t, http.StatusOK, serveWith(self, "/users/:id", "/users/cust-alice", "Bearer customer").Code)
	assert.Equal(t, http.StatusForbidden, serveWith(self, "/users/:id", "/users/cust-bob", "Bearer customer").Code)

	assert.Equal(t, http.StatusUnauthorized, serveWith([]gin.HandlerFunc{RBAC("admin")}, "/stats", "/stats", "").Code)
}

type observerStub struct {
	path   string
	status int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.path, o.status = path, status
}

func TestMetricsObservesRoutePattern(t *testing.T) {
	observer := &observerStub{}
	serveWith([]gin.HandlerFunc{Metrics(observer)}, "/emergencies/:id", "/emergencies/e-1", "")

	assert.Equal(t, "/emergencies/:id", observer.path)
	assert.Equal(t, http.StatusOK, observer.status)
}

func TestResponseMetaStampsProcessingTime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}
