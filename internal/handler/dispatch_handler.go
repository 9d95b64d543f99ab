package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	"github.com/noah-isme/roadside-assist-api/pkg/response"
)

type dispatchService interface {
	FindNearbyEmergencies(ctx context.Context, query dto.NearbyQuery) ([]models.NearbyEmergency, error)
	FindNearbyGarages(ctx context.Context, query dto.NearbyQuery) (*dto.NearbyGaragesResponse, error)
}

// DispatchHandler serves radius searches.
type DispatchHandler struct {
	service dispatchService
}

// NewDispatchHandler builds a new handler.
func NewDispatchHandler(service dispatchService) *DispatchHandler {
	return &DispatchHandler{service: service}
}

// NearbyEmergencies godoc
// @Summary Emergencies around a point, most urgent first
// @Tags Dispatch
// @Produce json
// @Param latitude query number true "Latitude"
// @Param longitude query number true "Longitude"
// @Param radius query number false "Radius in km"
// @Param status query []string false "Statuses (default pending,dispatched)"
// @Success 200 {object} response.Envelope
// @Router /emergencies/nearby [get]
func (h *DispatchHandler) NearbyEmergencies(c *gin.Context) {
	query, err := nearbyQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	query.Statuses = queryList[models.EmergencyStatus](c, "status")
	items, err := h.service.FindNearbyEmergencies(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewNearbyEmergencyResponses(items), nil, map[string]interface{}{"count": len(items)})
}

// NearbyGarages godoc
// @Summary Active garages around a point, nearest first
// @Tags Dispatch
// @Produce json
// @Param latitude query number true "Latitude"
// @Param longitude query number true "Longitude"
// @Param radius query number false "Radius in km"
// @Success 200 {object} response.Envelope
// @Router /garages/nearby [get]
func (h *DispatchHandler) NearbyGarages(c *gin.Context) {
	query, err := nearbyQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.FindNearbyGarages(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func nearbyQuery(c *gin.Context) (dto.NearbyQuery, error) {
	var query dto.NearbyQuery
	var err error
	if query.Latitude, err = queryFloat(c, "latitude"); err != nil {
		return query, err
	}
	if query.Longitude, err = queryFloat(c, "longitude"); err != nil {
		return query, err
	}
	if query.RadiusKm, err = queryFloat(c, "radius"); err != nil {
		return query, err
	}
	return query, nil
}
