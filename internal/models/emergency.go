package models

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EmergencyType classifies the incident reported by a customer.
type EmergencyType string

const (
	EmergencyBreakdown EmergencyType = "breakdown"
	EmergencyAccident  EmergencyType = "accident"
	EmergencyFlatTire  EmergencyType = "flat_tire"
	EmergencyBattery   EmergencyType = "battery"
	EmergencyFuel      EmergencyType = "fuel"
	EmergencyLockout   EmergencyType = "lockout"
	EmergencyOther     EmergencyType = "other"
)

// AllEmergencyTypes lists every emergency type.
var AllEmergencyTypes = []EmergencyType{
	EmergencyBreakdown, EmergencyAccident, EmergencyFlatTire, EmergencyBattery,
	EmergencyFuel, EmergencyLockout, EmergencyOther,
}

// Valid reports whether t is a known type.
func (t EmergencyType) Valid() bool {
	for _, known := range AllEmergencyTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EmergencyStatus is the dispatch lifecycle state.
type EmergencyStatus string

const (
	EmergencyPending    EmergencyStatus = "pending"
	EmergencyDispatched EmergencyStatus = "dispatched"
	EmergencyInProgress EmergencyStatus = "in_progress"
	EmergencyCompleted  EmergencyStatus = "completed"
	EmergencyCancelled  EmergencyStatus = "cancelled"
)

// AllEmergencyStatuses lists every status in lifecycle order.
var AllEmergencyStatuses = []EmergencyStatus{
	EmergencyPending, EmergencyDispatched, EmergencyInProgress, EmergencyCompleted, EmergencyCancelled,
}

// ActiveEmergencyStatuses are the non terminal states.
var ActiveEmergencyStatuses = []EmergencyStatus{EmergencyPending, EmergencyDispatched, EmergencyInProgress}

// Valid reports whether s is a known status.
func (s EmergencyStatus) Valid() bool {
	for _, known := range AllEmergencyStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s EmergencyStatus) IsTerminal() bool {
	return s == EmergencyCompleted || s == EmergencyCancelled
}

// EmergencyPriority is the urgency rank assigned at creation.
type EmergencyPriority string

const (
	PriorityLow      EmergencyPriority = "low"
	PriorityMedium   EmergencyPriority = "medium"
	PriorityHigh     EmergencyPriority = "high"
	PriorityCritical EmergencyPriority = "critical"
)

// AllPriorities lists priorities from most to least urgent.
var AllPriorities = []EmergencyPriority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Rank orders priorities, lower is more urgent. Unknown values sort last.
func (p EmergencyPriority) Rank() int {
	for i, known := range AllPriorities {
		if p == known {
			return i
		}
	}
	return len(AllPriorities)
}

// Valid reports whether p is a known priority.
func (p EmergencyPriority) Valid() bool {
	return p.Rank() < len(AllPriorities)
}

// CancelledBy records who cancelled an emergency.
type CancelledBy string

const (
	CancelledByCustomer CancelledBy = "customer"
	CancelledByAdmin    CancelledBy = "admin"
)

// Location is a geographic point with a human readable address.
type Location struct {
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
	Address   string  `db:"address" json:"address"`
}

// VehicleInfo describes the vehicle involved in an emergency.
type VehicleInfo struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Year         int    `json:"year,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
	Color        string `json:"color,omitempty"`
}

// Value marshals vehicle info to JSON for persistence.
func (v VehicleInfo) Value() (driver.Value, error) {
	return jsonValue(v, "vehicle info")
}

// Scan unmarshals the JSONB column.
func (v *VehicleInfo) Scan(value interface{}) error {
	*v = VehicleInfo{}
	_, err := scanJSON(value, v, "vehicle info")
	return err
}

// Part is a replacement part used during service.
type Part struct {
	Name     string          `json:"name" validate:"required"`
	Quantity int             `json:"quantity" validate:"gte=0"`
	Cost     decimal.Decimal `json:"cost"`
}

// Parts is persisted as a JSONB array.
type Parts []Part

// Value marshals parts to JSON for persistence.
func (p Parts) Value() (driver.Value, error) {
	if p == nil {
		p = Parts{}
	}
	return jsonValue(p, "parts")
}

// Scan unmarshals the JSONB column.
func (p *Parts) Scan(value interface{}) error {
	*p = Parts{}
	_, err := scanJSON(value, p, "parts")
	return err
}

// Total sums cost times quantity over all parts.
func (p Parts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, part := range p {
		total = total.Add(part.Cost.Mul(decimal.NewFromInt(int64(part.Quantity))))
	}
	return total
}

// EmergencyRequest is a customer initiated roadside assistance request.
type EmergencyRequest struct {
	Location           `json:"location"`
	ID                 string            `db:"id" json:"id"`
	CustomerID         string            `db:"customer_id" json:"customer_id"`
	Type               EmergencyType     `db:"type" json:"type"`
	Description        string            `db:"description" json:"description"`
	Status             EmergencyStatus   `db:"status" json:"status"`
	Priority           EmergencyPriority `db:"priority" json:"priority"`
	VehicleInfo        VehicleInfo       `db:"vehicle_info" json:"vehicle_info"`
	ContactNumber      string            `db:"contact_number" json:"contact_number"`
	AlternateContact   *string           `db:"alternate_contact" json:"alternate_contact,omitempty"`
	PassengerCount     int               `db:"passenger_count" json:"passenger_count"`
	HasInjuries        bool              `db:"has_injuries" json:"has_injuries"`
	WeatherConditions  *string           `db:"weather_conditions" json:"weather_conditions,omitempty"`
	RoadConditions     *string           `db:"road_conditions" json:"road_conditions,omitempty"`
	DispatchNotes      *string           `db:"dispatch_notes" json:"dispatch_notes,omitempty"`
	EstimatedArrival   *time.Time        `db:"estimated_arrival" json:"estimated_arrival,omitempty"`
	AssignedAt         *time.Time        `db:"assigned_at" json:"assigned_at,omitempty"`
	ActualArrival      *time.Time        `db:"actual_arrival" json:"actual_arrival,omitempty"`
	CompletedAt        *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	PartsUsed          Parts             `db:"parts_used" json:"parts_used"`
	LaborCost          decimal.Decimal   `db:"labor_cost" json:"labor_cost"`
	TotalCost          decimal.Decimal   `db:"total_cost" json:"total_cost"`
	CancellationReason *string           `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledBy        *CancelledBy      `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// ReferenceNumber renders the customer facing identifier, e.g. EMG-2025-1A2B3C.
func (e EmergencyRequest) ReferenceNumber() string {
	return referenceNumber("EMG", e.ID, e.CreatedAt)
}

// ResponseTimeMinutes is the rounded minutes between creation and arrival, nil until arrival.
func (e EmergencyRequest) ResponseTimeMinutes() *int {
	if e.ActualArrival == nil {
		return nil
	}
	minutes := int(math.Round(e.ActualArrival.Sub(e.CreatedAt).Minutes()))
	return &minutes
}

// NearbyEmergency pairs an emergency with its distance from the query point.
type NearbyEmergency struct {
	EmergencyRequest
	DistanceKm float64 `json:"distance_km"`
}

// EmergencyFilter captures filtering criteria for listing emergencies.
type EmergencyFilter struct {
	CustomerID string
	Status     *EmergencyStatus
	Type       *EmergencyType
	Priority   *EmergencyPriority
	Page       int
	PageSize   int
}

// EmergencyTransition describes one conditional status write.
type EmergencyTransition struct {
	ID               string
	From             EmergencyStatus
	To               EmergencyStatus
	At               time.Time
	DispatchNotes    *string
	EstimatedArrival *time.Time
}

// EmergencyCancellation describes a conditional cancel write.
type EmergencyCancellation struct {
	ID     string
	Reason string
	By     CancelledBy
	At     time.Time
}

// EmergencyCost describes a conditional cost write.
type EmergencyCost struct {
	ID        string
	Parts     Parts
	LaborCost decimal.Decimal
	TotalCost decimal.Decimal
	At        time.Time
}

func referenceNumber(prefix, id string, createdAt time.Time) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > 6 {
		compact = compact[len(compact)-6:]
	}
	return fmt.Sprintf("%s-%d-%s", prefix, createdAt.Year(), strings.ToUpper(compact))
}
