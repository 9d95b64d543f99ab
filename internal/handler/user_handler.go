package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadside-assist-api/internal/models"
	"github.com/noah-isme/roadside-assist-api/pkg/response"
)

type profileService interface {
	Profile(ctx context.Context, principal models.Principal) (models.Profile, error)
}

// UserHandler serves the caller's own account.
type UserHandler struct {
	service profileService
}

// NewUserHandler builds a new handler.
func NewUserHandler(service profileService) *UserHandler {
	return &UserHandler{service: service}
}

// Me godoc
// @Summary Role specific profile of the caller
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	profile, err := h.service.Profile(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
