package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
)

const analyticsCachePrefix = "analytics"

// AnalyticsRepository describes the rollup queries required by AnalyticsService.
type AnalyticsRepository interface {
	CountBy(ctx context.Context, table string, from, to time.Time) ([]models.StatusCount, error)
	UsersByRole(ctx context.Context, to time.Time) ([]models.StatusCount, error)
	CompletedRevenue(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	AverageConfidence(ctx context.Context, from, to time.Time) (float64, error)
	ResponseTimes(ctx context.Context, from, to time.Time) ([]models.TypeResponseTime, error)
	TopGaragesByRevenue(ctx context.Context, from, to time.Time, limit int) ([]models.GarageRevenue, error)
}

type diagnosisStatsReader interface {
	Stats(ctx context.Context, from, to time.Time) (*models.DiagnosisStats, error)
}

type garageStatsReader interface {
	FindByID(ctx context.Context, id string) (*models.Garage, error)
	Stats(ctx context.Context, garageID string, from, to time.Time) (*models.GarageStats, error)
}

// AnalyticsConfig tunes ranking sizes.
type AnalyticsConfig struct {
	TopNDefault int
	TopNMax     int
	CacheTTL    time.Duration
}

// AnalyticsService provides read-only rollups with cache integration. Empty data yields zeroed
// aggregates, never an error.
type AnalyticsService struct {
	repo      AnalyticsRepository
	diagnoses diagnosisStatsReader
	garages   garageStatsReader
	cache     *CacheService
	metrics   *MetricsService
	cfg       AnalyticsConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, diagnoses diagnosisStatsReader, garages garageStatsReader, cache *CacheService, metrics *MetricsService, cfg AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	if cfg.TopNDefault <= 0 {
		cfg.TopNDefault = 5
	}
	if cfg.TopNMax <= 0 {
		cfg.TopNMax = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		repo:      repo,
		diagnoses: diagnoses,
		garages:   garages,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Dashboard returns the platform rollup for the range. The boolean indicates whether data
// originated from cache.
func (s *AnalyticsService) Dashboard(ctx context.Context, query dto.AnalyticsRangeQuery) (*models.Dashboard, bool, error) {
	r, err := s.resolveRange(query)
	if err != nil {
		return nil, false, err
	}
	cacheKey := makeAnalyticsCacheKey("dashboard", cacheStamp(r.From), cacheStamp(r.To), strconv.Itoa(r.TopN))
	var cached models.Dashboard
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	dashboard, err := s.buildDashboard(ctx, r)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to build dashboard")
	}
	s.metrics.ObserveDBQuery("analytics_dashboard", time.Since(start))
	s.cache.Set(ctx, cacheKey, dashboard, s.cfg.CacheTTL)
	return dashboard, false, nil
}

// DiagnosisStats summarises diagnoses created within the range.
func (s *AnalyticsService) DiagnosisStats(ctx context.Context, query dto.AnalyticsRangeQuery) (*models.DiagnosisStats, bool, error) {
	r, err := s.resolveRange(query)
	if err != nil {
		return nil, false, err
	}
	cacheKey := makeAnalyticsCacheKey("diagnoses", cacheStamp(r.From), cacheStamp(r.To))
	var cached models.DiagnosisStats
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	stats, err := s.diagnoses.Stats(ctx, r.From, r.To)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to compute diagnosis stats")
	}
	s.metrics.ObserveDBQuery("analytics_diagnoses", time.Since(start))
	s.cache.Set(ctx, cacheKey, stats, s.cfg.CacheTTL)
	return stats, false, nil
}

// GarageStats derives booking totals for one garage. Garage owners may only read their own.
func (s *AnalyticsService) GarageStats(ctx context.Context, principal models.Principal, query dto.GarageStatsQuery) (*models.GarageStats, error) {
	r, err := s.resolveRange(query.Range)
	if err != nil {
		return nil, err
	}
	garage, err := s.garages.FindByID(ctx, query.GarageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "garage not found")
		}
		return nil, appErrors.Internal(err, "failed to load garage")
	}
	switch {
	case principal.IsAdmin():
	case principal.Role == models.RoleGarageOwner && principal.Owns(garage.OwnerID):
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "garage statistics are restricted to the owner")
	}

	stats, err := s.garages.Stats(ctx, garage.ID, r.From, r.To)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute garage stats")
	}
	return stats, nil
}

// Invalidate drops every cached analytics view.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, analyticsCachePrefix+":")
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{GeneratedAt: s.now()}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) buildDashboard(ctx context.Context, r models.AnalyticsRange) (*models.Dashboard, error) {
	dashboard := &models.Dashboard{
		From:               r.From,
		To:                 r.To,
		EmergencyByStatus:  make(map[models.EmergencyStatus]int, len(models.AllEmergencyStatuses)),
		DiagnosisByStatus:  make(map[models.DiagnosisStatus]int, len(models.AllDiagnosisStatuses)),
		BookingByStatus:    make(map[models.BookingStatus]int, len(models.AllBookingStatuses)),
		UsersByRole:        make(map[models.UserRole]int, len(models.AllUserRoles)),
		ResponseTimeByType: make(map[models.EmergencyType]float64, len(models.AllEmergencyTypes)),
		TopGarages:         []models.GarageRevenue{},
		GeneratedAt:        s.now(),
	}
	for _, status := range models.AllEmergencyStatuses {
		dashboard.EmergencyByStatus[status] = 0
	}
	for _, status := range models.AllDiagnosisStatuses {
		dashboard.DiagnosisByStatus[status] = 0
	}
	for _, status := range models.AllBookingStatuses {
		dashboard.BookingByStatus[status] = 0
	}
	for _, role := range models.AllUserRoles {
		dashboard.UsersByRole[role] = 0
	}
	for _, t := range models.AllEmergencyTypes {
		dashboard.ResponseTimeByType[t] = 0
	}

	emergencies, err := s.repo.CountBy(ctx, "emergency_requests", r.From, r.To)
	if err != nil {
		return nil, err
	}
	for _, c := range emergencies {
		dashboard.EmergencyByStatus[models.EmergencyStatus(c.Key)] += c.Count
	}
	diagnoses, err := s.repo.CountBy(ctx, "diagnoses", r.From, r.To)
	if err != nil {
		return nil, err
	}
	for _, c := range diagnoses {
		dashboard.DiagnosisByStatus[models.DiagnosisStatus(c.Key)] += c.Count
	}
	bookings, err := s.repo.CountBy(ctx, "bookings", r.From, r.To)
	if err != nil {
		return nil, err
	}
	for _, c := range bookings {
		dashboard.BookingByStatus[models.BookingStatus(c.Key)] += c.Count
	}
	users, err := s.repo.UsersByRole(ctx, r.To)
	if err != nil {
		return nil, err
	}
	for _, c := range users {
		dashboard.UsersByRole[models.UserRole(c.Key)] += c.Count
	}

	if dashboard.Revenue, err = s.repo.CompletedRevenue(ctx, r.From, r.To); err != nil {
		return nil, err
	}
	if dashboard.AverageConfidence, err = s.repo.AverageConfidence(ctx, r.From, r.To); err != nil {
		return nil, err
	}
	responseTimes, err := s.repo.ResponseTimes(ctx, r.From, r.To)
	if err != nil {
		return nil, err
	}
	for _, rt := range responseTimes {
		dashboard.ResponseTimeByType[rt.Type] = rt.AverageMinutes
	}
	top, err := s.repo.TopGaragesByRevenue(ctx, r.From, r.To, r.TopN)
	if err != nil {
		return nil, err
	}
	if top != nil {
		dashboard.TopGarages = top
	}
	return dashboard, nil
}

// resolveRange applies defaults: from the first day of the current month to now, top five.
func (s *AnalyticsService) resolveRange(query dto.AnalyticsRangeQuery) (models.AnalyticsRange, error) {
	now := s.now()
	r := models.AnalyticsRange{
		From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		To:   now,
		TopN: s.cfg.TopNDefault,
	}
	if query.From != nil {
		r.From = query.From.UTC()
	}
	if query.To != nil {
		r.To = query.To.UTC()
	}
	if r.From.After(r.To) {
		return r, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	if query.TopN != 0 {
		if query.TopN < 0 || query.TopN > s.cfg.TopNMax {
			return r, appErrors.Clone(appErrors.ErrValidation, "top must be between 1 and "+strconv.Itoa(s.cfg.TopNMax))
		}
		r.TopN = query.TopN
	}
	return r, nil
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString(analyticsCachePrefix)
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

// cacheStamp truncates to the minute so repeated default range requests share an entry.
func cacheStamp(t time.Time) string {
	return strconv.FormatInt(t.Truncate(time.Minute).Unix(), 10)
}
