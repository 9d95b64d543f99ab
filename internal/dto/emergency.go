package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/roadside-assist-api/internal/models"
)

// LocationInput carries coordinates as pointers so a missing value is distinguishable from zero.
type LocationInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address   string   `json:"address" validate:"required,max=300"`
}

// CreateEmergencyRequest captures POST /emergencies payload.
type CreateEmergencyRequest struct {
	Type              models.EmergencyType `json:"type" validate:"required,oneof=breakdown accident flat_tire battery fuel lockout other"`
	Description       string               `json:"description" validate:"required,max=1000"`
	Location          LocationInput        `json:"location"`
	VehicleInfo       models.VehicleInfo   `json:"vehicle_info"`
	ContactNumber     string               `json:"contact_number" validate:"required,max=32"`
	AlternateContact  *string              `json:"alternate_contact,omitempty" validate:"omitempty,max=32"`
	PassengerCount    *int                 `json:"passenger_count,omitempty" validate:"omitempty,gte=0,lte=60"`
	HasInjuries       bool                 `json:"has_injuries"`
	WeatherConditions *string              `json:"weather_conditions,omitempty" validate:"omitempty,max=100"`
	RoadConditions    *string              `json:"road_conditions,omitempty" validate:"omitempty,max=100"`
}

// UpdateEmergencyStatusRequest captures PATCH /emergencies/:id/status payload.
type UpdateEmergencyStatusRequest struct {
	Status           models.EmergencyStatus `json:"status" validate:"required"`
	DispatchNotes    *string                `json:"dispatch_notes,omitempty" validate:"omitempty,max=1000"`
	EstimatedArrival *time.Time             `json:"estimated_arrival,omitempty"`
}

// CancelEmergencyRequest captures POST /emergencies/:id/cancel payload.
type CancelEmergencyRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RecordCostRequest captures PUT /emergencies/:id/cost payload.
type RecordCostRequest struct {
	Parts     []models.Part   `json:"parts" validate:"dive"`
	LaborCost decimal.Decimal `json:"labor_cost"`
}

// EmergencyListQuery captures GET /emergencies filters.
type EmergencyListQuery struct {
	Status   *models.EmergencyStatus
	Type     *models.EmergencyType
	Priority *models.EmergencyPriority
	Page     int
	PageSize int
}

// NearbyQuery captures radius search parameters shared by emergencies and garages.
type NearbyQuery struct {
	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64
	Statuses  []models.EmergencyStatus
}

// EmergencyResponse adds derived fields to an emergency.
type EmergencyResponse struct {
	*models.EmergencyRequest
	ReferenceNumber     string   `json:"reference_number"`
	ResponseTimeMinutes *int     `json:"response_time_minutes,omitempty"`
	DistanceKm          *float64 `json:"distance_km,omitempty"`
}

// NewEmergencyResponse decorates an emergency with its derived fields.
func NewEmergencyResponse(e *models.EmergencyRequest) EmergencyResponse {
	return EmergencyResponse{
		EmergencyRequest:    e,
		ReferenceNumber:     e.ReferenceNumber(),
		ResponseTimeMinutes: e.ResponseTimeMinutes(),
	}
}

// NewNearbyEmergencyResponses decorates radius results keeping their order.
func NewNearbyEmergencyResponses(items []models.NearbyEmergency) []EmergencyResponse {
	out := make([]EmergencyResponse, 0, len(items))
	for i := range items {
		resp := NewEmergencyResponse(&items[i].EmergencyRequest)
		distance := items[i].DistanceKm
		resp.DistanceKm = &distance
		out = append(out, resp)
	}
	return out
}
