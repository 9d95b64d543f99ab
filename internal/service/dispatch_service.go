package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/geo"
)

type emergencyLocator interface {
	FindWithinBounds(ctx context.Context, bounds geo.Bounds, statuses []models.EmergencyStatus) ([]models.EmergencyRequest, error)
}

type garageLocator interface {
	FindActiveWithinBounds(ctx context.Context, bounds geo.Bounds) ([]models.Garage, error)
}

// DispatchConfig bounds radius searches.
type DispatchConfig struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	GarageRadiusKm  float64
}

// DispatchService answers proximity queries for dispatchers and garages.
type DispatchService struct {
	emergencies emergencyLocator
	garages     garageLocator
	cfg         DispatchConfig
	logger      *zap.Logger
}

// NewDispatchService builds a DispatchService.
func NewDispatchService(emergencies emergencyLocator, garages garageLocator, cfg DispatchConfig, logger *zap.Logger) *DispatchService {
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 5
	}
	if cfg.MaxRadiusKm <= 0 {
		cfg.MaxRadiusKm = 100
	}
	if cfg.GarageRadiusKm <= 0 {
		cfg.GarageRadiusKm = cfg.DefaultRadiusKm
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchService{emergencies: emergencies, garages: garages, cfg: cfg, logger: logger}
}

// FindNearbyEmergencies returns emergencies within the radius of a point, most urgent first and
// newest first within a priority.
func (s *DispatchService) FindNearbyEmergencies(ctx context.Context, query dto.NearbyQuery) ([]models.NearbyEmergency, error) {
	center, radius, err := s.resolveSearch(query, s.cfg.DefaultRadiusKm)
	if err != nil {
		return nil, err
	}
	statuses := query.Statuses
	if len(statuses) == 0 {
		statuses = []models.EmergencyStatus{models.EmergencyPending, models.EmergencyDispatched}
	}
	for _, status := range statuses {
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown emergency status "+string(status))
		}
	}

	candidates, err := s.emergencies.FindWithinBounds(ctx, geo.BoundsAround(center, radius), statuses)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to search emergencies")
	}
	results := make([]models.NearbyEmergency, 0, len(candidates))
	for _, candidate := range candidates {
		distance := geo.HaversineKm(center, geo.Point{Latitude: candidate.Latitude, Longitude: candidate.Longitude})
		if distance > radius {
			continue
		}
		results = append(results, models.NearbyEmergency{EmergencyRequest: candidate, DistanceKm: distance})
	}
	SortByUrgency(results)

	s.logger.Debug("nearby emergencies resolved",
		zap.Float64("radius_km", radius),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(results)),
	)
	return results, nil
}

// FindNearbyGarages returns active garages within the radius, nearest first.
func (s *DispatchService) FindNearbyGarages(ctx context.Context, query dto.NearbyQuery) (*dto.NearbyGaragesResponse, error) {
	center, radius, err := s.resolveSearch(query, s.cfg.GarageRadiusKm)
	if err != nil {
		return nil, err
	}
	candidates, err := s.garages.FindActiveWithinBounds(ctx, geo.BoundsAround(center, radius))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to search garages")
	}
	garages := make([]models.NearbyGarage, 0, len(candidates))
	for _, candidate := range candidates {
		distance := geo.HaversineKm(center, geo.Point{Latitude: candidate.Latitude, Longitude: candidate.Longitude})
		if distance > radius {
			continue
		}
		garages = append(garages, models.NearbyGarage{Garage: candidate, DistanceKm: distance})
	}
	sort.SliceStable(garages, func(i, j int) bool {
		if garages[i].DistanceKm != garages[j].DistanceKm {
			return garages[i].DistanceKm < garages[j].DistanceKm
		}
		return garages[i].ID < garages[j].ID
	})
	return &dto.NearbyGaragesResponse{RadiusKm: radius, Garages: garages}, nil
}

func (s *DispatchService) resolveSearch(query dto.NearbyQuery, defaultRadius float64) (geo.Point, float64, error) {
	center, err := locationPoint(query.Latitude, query.Longitude)
	if err != nil {
		return geo.Point{}, 0, err
	}
	radius := defaultRadius
	if query.RadiusKm != nil {
		radius = *query.RadiusKm
	}
	if !(radius > 0 && radius <= s.cfg.MaxRadiusKm) {
		return geo.Point{}, 0, appErrors.Clone(appErrors.ErrValidation, "radius must be greater than 0 and at most the configured maximum")
	}
	return center, radius, nil
}

// SortByUrgency orders emergencies by priority rank, then newest first. IDs break exact ties so
// the order is stable across calls.
func SortByUrgency(items []models.NearbyEmergency) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra < rb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
