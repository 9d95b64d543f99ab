package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Garage is a service provider that can respond to emergencies.
type Garage struct {
	Location          `json:"location"`
	ID                string          `db:"id" json:"id"`
	OwnerID           string          `db:"owner_id" json:"owner_id"`
	Name              string          `db:"name" json:"name"`
	City              string          `db:"city" json:"city"`
	PhoneNumber       string          `db:"phone_number" json:"phone_number"`
	Rating            decimal.Decimal `db:"rating" json:"rating"`
	CurrentQueue      int             `db:"current_queue" json:"current_queue"`
	EstimatedWaitTime int             `db:"estimated_wait_time" json:"estimated_wait_time"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// NearbyGarage pairs a garage with its distance from the query point.
type NearbyGarage struct {
	Garage
	DistanceKm float64 `json:"distance_km"`
}

// GarageStats is derived from bookings on demand.
type GarageStats struct {
	GarageID              string          `json:"garage_id"`
	From                  time.Time       `json:"from"`
	To                    time.Time       `json:"to"`
	TotalBookings         int             `db:"total_bookings" json:"total_bookings"`
	CompletedBookings     int             `db:"completed_bookings" json:"completed_bookings"`
	Revenue               decimal.Decimal `db:"revenue" json:"revenue"`
	AverageServiceMinutes float64         `db:"-" json:"average_service_minutes"`
}
