package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/response"
)

type emergencyService interface {
	Create(ctx context.Context, principal models.Principal, req dto.CreateEmergencyRequest) (*models.EmergencyRequest, error)
	Get(ctx context.Context, principal models.Principal, id string) (*models.EmergencyRequest, error)
	List(ctx context.Context, principal models.Principal, query dto.EmergencyListQuery) ([]models.EmergencyRequest, *models.Pagination, error)
	UpdateStatus(ctx context.Context, principal models.Principal, id string, req dto.UpdateEmergencyStatusRequest) (*models.EmergencyRequest, error)
	Cancel(ctx context.Context, principal models.Principal, id string, req dto.CancelEmergencyRequest) (*models.EmergencyRequest, error)
	RecordCost(ctx context.Context, principal models.Principal, id string, req dto.RecordCostRequest) (*models.EmergencyRequest, error)
}

// EmergencyHandler exposes emergency dispatch endpoints.
type EmergencyHandler struct {
	service emergencyService
}

// NewEmergencyHandler builds a new handler.
func NewEmergencyHandler(service emergencyService) *EmergencyHandler {
	return &EmergencyHandler{service: service}
}

// Create godoc
// @Summary Raise an emergency request
// @Tags Emergencies
// @Accept json
// @Produce json
// @Param payload body dto.CreateEmergencyRequest true "Emergency payload"
// @Success 201 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /emergencies [post]
func (h *EmergencyHandler) Create(c *gin.Context) {
	var req dto.CreateEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid emergency payload"))
		return
	}
	emergency, err := h.service.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewEmergencyResponse(emergency))
}

// List godoc
// @Summary List emergency requests
// @Tags Emergencies
// @Produce json
// @Param status query string false "Status filter"
// @Param type query string false "Type filter"
// @Param priority query string false "Priority filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /emergencies [get]
func (h *EmergencyHandler) List(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		response.Error(c, err)
		return
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.EmergencyListQuery{
		Status:   queryEnum[models.EmergencyStatus](c, "status"),
		Type:     queryEnum[models.EmergencyType](c, "type"),
		Priority: queryEnum[models.EmergencyPriority](c, "priority"),
		Page:     page,
		PageSize: size,
	}
	items, pagination, err := h.service.List(c.Request.Context(), principalFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.EmergencyResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewEmergencyResponse(&items[i]))
	}
	response.JSON(c, http.StatusOK, out, pagination)
}

// Get godoc
// @Summary Get an emergency request
// @Tags Emergencies
// @Produce json
// @Param id path string true "Emergency ID"
// @Success 200 {object} response.Envelope
// @Router /emergencies/{id} [get]
func (h *EmergencyHandler) Get(c *gin.Context) {
	emergency, err := h.service.Get(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewEmergencyResponse(emergency), nil)
}

// UpdateStatus godoc
// @Summary Advance an emergency through dispatch
// @Tags Emergencies
// @Accept json
// @Produce json
// @Param id path string true "Emergency ID"
// @Param payload body dto.UpdateEmergencyStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /emergencies/{id}/status [patch]
func (h *EmergencyHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateEmergencyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	emergency, err := h.service.UpdateStatus(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewEmergencyResponse(emergency), nil)
}

// Cancel godoc
// @Summary Cancel an emergency request
// @Tags Emergencies
// @Accept json
// @Produce json
// @Param id path string true "Emergency ID"
// @Param payload body dto.CancelEmergencyRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Router /emergencies/{id}/cancel [post]
func (h *EmergencyHandler) Cancel(c *gin.Context) {
	var req dto.CancelEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
		return
	}
	emergency, err := h.service.Cancel(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewEmergencyResponse(emergency), nil)
}

// RecordCost godoc
// @Summary Record parts and labor cost
// @Tags Emergencies
// @Accept json
// @Produce json
// @Param id path string true "Emergency ID"
// @Param payload body dto.RecordCostRequest true "Cost payload"
// @Success 200 {object} response.Envelope
// @Router /emergencies/{id}/cost [put]
func (h *EmergencyHandler) RecordCost(c *gin.Context) {
	var req dto.RecordCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cost payload"))
		return
	}
	emergency, err := h.service.RecordCost(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewEmergencyResponse(emergency), nil)
}
