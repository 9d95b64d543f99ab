package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadside-assist-api/pkg/geo"
)

func TestAnalyticsRepositoryCountBy(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnalyticsRepository(db)
	from, to := time.Now().Add(-time.Hour), time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT analysis_status AS key, COUNT(*) AS count FROM diagnoses WHERE created_at BETWEEN $1 AND $2 GROUP BY analysis_status`)).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("completed", 4))

	counts, err := repo.CountBy(context.Background(), "diagnoses", from, to)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 4, counts[0].Count)

	_, err = repo.CountBy(context.Background(), "users; DROP TABLE users", from, to)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryEmptyAggregatesAreNeutral(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnalyticsRepository(db)
	from, to := time.Now().Add(-time.Hour), time.Now()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))
	mock.ExpectQuery(`SELECT AVG\(confidence\) FROM diagnoses`).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	revenue, err := repo.CompletedRevenue(context.Background(), from, to)
	require.NoError(t, err)
	assert.True(t, revenue.Equal(decimal.Zero))

	avg, err := repo.AverageConfidence(context.Background(), from, to)
	require.NoError(t, err)
	assert.Zero(t, avg)
}

func TestAnalyticsRepositoryTopGarages(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnalyticsRepository(db)
	from, to := time.Now().Add(-time.Hour), time.Now()

	mock.ExpectQuery(`ORDER BY revenue DESC, g.name ASC LIMIT \$3`).
		WithArgs(from, to, 5).
		WillReturnRows(sqlmock.NewRows([]string{"garage_id", "name", "completed_bookings", "revenue"}).
			AddRow("g-1", "Colombo Motors", 3, "45000.00"))

	rows, err := repo.TopGaragesByRevenue(context.Background(), from, to, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Revenue.Equal(decimal.NewFromInt(45000)))
}

func TestGarageRepositoryStatsAndNearby(t *testing.T) {
	db, mock := newMock(t)
	repo := NewGarageRepository(db)
	from, to := time.Now().Add(-time.Hour), time.Now()

	mock.ExpectQuery(`FROM bookings WHERE garage_id = \$1 AND created_at BETWEEN \$2 AND \$3`).
		WithArgs("g-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"total_bookings", "completed_bookings", "revenue", "avg_service_minutes"}).
			AddRow(5, 3, "30000", nil))

	stats, err := repo.Stats(context.Background(), "g-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, "g-1", stats.GarageID)
	assert.Equal(t, 3, stats.CompletedBookings)
	assert.Zero(t, stats.AverageServiceMinutes)

	bounds := geo.BoundsAround(geo.Point{Latitude: 6.9271, Longitude: 79.8612}, 5)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM garages WHERE is_active AND latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4`)).
		WithArgs(bounds.MinLat, bounds.MaxLat, bounds.MinLng, bounds.MaxLng).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "address", "city", "phone_number", "latitude", "longitude", "rating",
			"current_queue", "estimated_wait_time", "is_active", "created_at", "updated_at"}).
			AddRow("g-1", "owner-1", "Colombo Motors", "12 Galle Rd", "Colombo", "+9411", 6.93, 79.85, "4.5", 2, 30, true, to, to))

	garages, err := repo.FindActiveWithinBounds(context.Background(), bounds)
	require.NoError(t, err)
	require.Len(t, garages, 1)
	assert.Equal(t, "12 Galle Rd", garages[0].Address)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM users WHERE id = \$1 LIMIT 1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "phone_number", "role", "garage_name", "garage_address", "is_active", "created_at", "updated_at"}).
			AddRow("u-1", "owner@example.com", "Nimal", "Perera", "+9477", "garage_owner", "Colombo Motors", "12 Galle Rd", true, now, now))

	user, err := repo.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	require.NotNil(t, user.GarageName)
	assert.Equal(t, "Colombo Motors", *user.GarageName)
}
