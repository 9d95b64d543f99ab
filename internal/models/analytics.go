package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnalyticsRange scopes dashboard queries. Records are included when From <= created_at <= To.
type AnalyticsRange struct {
	From time.Time
	To   time.Time
	TopN int
}

// StatusCount is one grouped count row.
type StatusCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// TypeResponseTime is the average response minutes for one emergency type.
type TypeResponseTime struct {
	Type           EmergencyType `db:"type" json:"type"`
	AverageMinutes float64       `db:"avg_minutes" json:"average_minutes"`
	Samples        int           `db:"samples" json:"samples"`
}

// GarageRevenue ranks garages by completed booking revenue.
type GarageRevenue struct {
	GarageID          string          `db:"garage_id" json:"garage_id"`
	Name              string          `db:"name" json:"name"`
	CompletedBookings int             `db:"completed_bookings" json:"completed_bookings"`
	Revenue           decimal.Decimal `db:"revenue" json:"revenue"`
}

// Dashboard is the platform wide rollup for a date range.
type Dashboard struct {
	From               time.Time                 `json:"from"`
	To                 time.Time                 `json:"to"`
	EmergencyByStatus  map[EmergencyStatus]int   `json:"emergency_by_status"`
	DiagnosisByStatus  map[DiagnosisStatus]int   `json:"diagnosis_by_status"`
	BookingByStatus    map[BookingStatus]int     `json:"booking_by_status"`
	UsersByRole        map[UserRole]int          `json:"users_by_role"`
	Revenue            decimal.Decimal           `json:"revenue"`
	AverageConfidence  float64                   `json:"average_confidence"`
	ResponseTimeByType map[EmergencyType]float64 `json:"response_time_minutes_by_type"`
	TopGarages         []GarageRevenue           `json:"top_garages"`
	GeneratedAt        time.Time                 `json:"generated_at"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	EmergenciesCreated       uint64    `json:"emergencies_created"`
	DiagnosesCompleted       uint64    `json:"diagnoses_completed"`
	DiagnosesFailed          uint64    `json:"diagnoses_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
