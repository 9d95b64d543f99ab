package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/roadside-assist-api/internal/models"
)

// AnalyticsRepository exposes read-optimised rollups for the dashboard. Every query is bounded by
// created_at BETWEEN from AND to.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// groupedCountTables whitelists the tables and columns CountBy may group on.
var groupedCountTables = map[string]string{
	"emergency_requests": "status",
	"diagnoses":          "analysis_status",
	"bookings":           "status",
}

// CountBy returns row counts grouped by the status column of table.
func (r *AnalyticsRepository) CountBy(ctx context.Context, table string, from, to time.Time) ([]models.StatusCount, error) {
	column, ok := groupedCountTables[table]
	if !ok {
		return nil, fmt.Errorf("count by: unsupported table %q", table)
	}
	query := fmt.Sprintf(`SELECT %s AS key, COUNT(*) AS count FROM %s WHERE created_at BETWEEN $1 AND $2 GROUP BY %s`, column, table, column)
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, from, to); err != nil {
		return nil, fmt.Errorf("count %s by %s: %w", table, column, err)
	}
	return counts, nil
}

// UsersByRole counts users registered up to the end of the range.
func (r *AnalyticsRepository) UsersByRole(ctx context.Context, to time.Time) ([]models.StatusCount, error) {
	const query = `SELECT role AS key, COUNT(*) AS count FROM users WHERE created_at <= $1 GROUP BY role`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, to); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	return counts, nil
}

// CompletedRevenue sums the amount of completed bookings.
func (r *AnalyticsRepository) CompletedRevenue(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM bookings WHERE status = 'completed' AND created_at BETWEEN $1 AND $2`
	var revenue decimal.Decimal
	if err := r.db.GetContext(ctx, &revenue, query, from, to); err != nil {
		return decimal.Zero, fmt.Errorf("completed revenue: %w", err)
	}
	return revenue, nil
}

// AverageConfidence averages the confidence of completed diagnoses. It returns 0 when there are none.
func (r *AnalyticsRepository) AverageConfidence(ctx context.Context, from, to time.Time) (float64, error) {
	const query = `SELECT AVG(confidence) FROM diagnoses WHERE analysis_status = 'completed' AND created_at BETWEEN $1 AND $2`
	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, from, to); err != nil {
		return 0, fmt.Errorf("average confidence: %w", err)
	}
	return avg.Float64, nil
}

// ResponseTimes averages actual_arrival - created_at in minutes per emergency type, over rows with an arrival.
func (r *AnalyticsRepository) ResponseTimes(ctx context.Context, from, to time.Time) ([]models.TypeResponseTime, error) {
	const query = `SELECT type, AVG(EXTRACT(EPOCH FROM (actual_arrival - created_at)) / 60) AS avg_minutes, COUNT(*) AS samples
FROM emergency_requests WHERE actual_arrival IS NOT NULL AND created_at BETWEEN $1 AND $2 GROUP BY type`
	var rows []models.TypeResponseTime
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("response times: %w", err)
	}
	return rows, nil
}

// TopGaragesByRevenue ranks garages by completed booking revenue, ties broken by name.
func (r *AnalyticsRepository) TopGaragesByRevenue(ctx context.Context, from, to time.Time, limit int) ([]models.GarageRevenue, error) {
	const query = `SELECT g.id AS garage_id, g.name, COUNT(b.id) AS completed_bookings, SUM(b.amount) AS revenue
FROM bookings b JOIN garages g ON g.id = b.garage_id
WHERE b.status = 'completed' AND b.created_at BETWEEN $1 AND $2
GROUP BY g.id, g.name ORDER BY revenue DESC, g.name ASC LIMIT $3`
	var rows []models.GarageRevenue
	if err := r.db.SelectContext(ctx, &rows, query, from, to, limit); err != nil {
		return nil, fmt.Errorf("top garages: %w", err)
	}
	return rows, nil
}
