package handler

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadside-assist-api/internal/middleware"
	"github.com/noah-isme/roadside-assist-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	customerClaims = &models.JWTClaims{UserID: "cust-alice", Role: models.RoleCustomer}
	adminClaims    = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
)

func newTestContext(req *http.Request, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if claims != nil {
		middleware.SetClaims(c, claims)
	}
	return c, w
}
