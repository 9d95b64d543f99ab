package dto

import "github.com/noah-isme/roadside-assist-api/internal/models"

// GarageStatsQuery captures GET /garages/:id/stats parameters.
type GarageStatsQuery struct {
	GarageID string
	Range    AnalyticsRangeQuery
}

// NearbyGaragesResponse lists garages around a point.
type NearbyGaragesResponse struct {
	RadiusKm float64               `json:"radius_km"`
	Garages  []models.NearbyGarage `json:"garages"`
}
