package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roadside-assist-api/internal/models"
	"github.com/noah-isme/roadside-assist-api/pkg/geo"
)

const garageColumns = `id, owner_id, name, address, city, phone_number, latitude, longitude, rating, current_queue,
estimated_wait_time, is_active, created_at, updated_at`

// GarageRepository reads garages and derives their booking statistics.
type GarageRepository struct {
	db *sqlx.DB
}

// NewGarageRepository constructs a GarageRepository.
func NewGarageRepository(db *sqlx.DB) *GarageRepository {
	return &GarageRepository{db: db}
}

// FindByID fetches a garage by ID.
func (r *GarageRepository) FindByID(ctx context.Context, id string) (*models.Garage, error) {
	var g models.Garage
	if err := r.db.GetContext(ctx, &g, `SELECT `+garageColumns+` FROM garages WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &g, nil
}

// FindActiveWithinBounds returns active garages inside the rectangle.
func (r *GarageRepository) FindActiveWithinBounds(ctx context.Context, bounds geo.Bounds) ([]models.Garage, error) {
	conditions, args := boundsConditions(bounds, nil)
	conditions = append([]string{"is_active"}, conditions...)
	query := fmt.Sprintf(`SELECT %s FROM garages WHERE %s`, garageColumns, strings.Join(conditions, " AND "))

	var garages []models.Garage
	if err := r.db.SelectContext(ctx, &garages, query, args...); err != nil {
		return nil, fmt.Errorf("find garages within bounds: %w", err)
	}
	return garages, nil
}

// Stats aggregates bookings of one garage created within the range.
func (r *GarageRepository) Stats(ctx context.Context, garageID string, from, to time.Time) (*models.GarageStats, error) {
	const query = `SELECT COUNT(*) AS total_bookings,
COUNT(*) FILTER (WHERE status = 'completed') AS completed_bookings,
COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0) AS revenue,
AVG(EXTRACT(EPOCH FROM (completed_at - scheduled_at)) / 60) FILTER (WHERE status = 'completed' AND completed_at IS NOT NULL) AS avg_service_minutes
FROM bookings WHERE garage_id = $1 AND created_at BETWEEN $2 AND $3`

	var row struct {
		models.GarageStats
		AvgMinutes sql.NullFloat64 `db:"avg_service_minutes"`
	}
	if err := r.db.GetContext(ctx, &row, query, garageID, from, to); err != nil {
		return nil, fmt.Errorf("garage stats: %w", err)
	}
	stats := row.GarageStats
	stats.GarageID = garageID
	stats.From = from
	stats.To = to
	stats.AverageServiceMinutes = row.AvgMinutes.Float64
	return &stats, nil
}
