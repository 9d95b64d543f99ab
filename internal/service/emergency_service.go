package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/events"
	"github.com/noah-isme/roadside-assist-api/pkg/geo"
)

const (
	EventEmergencyCreated       = "emergency.created"
	EventEmergencyStatusChanged = "emergency.status_changed"
	EventEmergencyCancelled     = "emergency.cancelled"
)

type emergencyStore interface {
	Create(ctx context.Context, e *models.EmergencyRequest) error
	FindByID(ctx context.Context, id string) (*models.EmergencyRequest, error)
	List(ctx context.Context, filter models.EmergencyFilter) ([]models.EmergencyRequest, int, error)
	TransitionStatus(ctx context.Context, t models.EmergencyTransition) (*models.EmergencyRequest, error)
	Cancel(ctx context.Context, c models.EmergencyCancellation) (*models.EmergencyRequest, error)
	RecordCost(ctx context.Context, c models.EmergencyCost) (*models.EmergencyRequest, error)
}

// EmergencyService owns the emergency dispatch lifecycle.
type EmergencyService struct {
	repo      emergencyStore
	events    events.Publisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEmergencyService builds an EmergencyService.
func NewEmergencyService(repo emergencyStore, publisher events.Publisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EmergencyService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmergencyService{
		repo:      repo,
		events:    publisher,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a pending emergency for the calling customer.
func (s *EmergencyService) Create(ctx context.Context, principal models.Principal, req dto.CreateEmergencyRequest) (*models.EmergencyRequest, error) {
	if principal.Role != models.RoleCustomer {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only customers can report emergencies")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid emergency payload")
	}
	point, err := locationPoint(req.Location.Latitude, req.Location.Longitude)
	if err != nil {
		return nil, err
	}

	passengers := 1
	if req.PassengerCount != nil {
		passengers = *req.PassengerCount
	}
	emergency := &models.EmergencyRequest{
		Location: models.Location{
			Latitude:  point.Latitude,
			Longitude: point.Longitude,
			Address:   req.Location.Address,
		},
		CustomerID:        principal.ID,
		Type:              req.Type,
		Description:       req.Description,
		Status:            models.EmergencyPending,
		Priority:          ComputePriority(req.Type, req.HasInjuries),
		VehicleInfo:       req.VehicleInfo,
		ContactNumber:     req.ContactNumber,
		AlternateContact:  req.AlternateContact,
		PassengerCount:    passengers,
		HasInjuries:       req.HasInjuries,
		WeatherConditions: req.WeatherConditions,
		RoadConditions:    req.RoadConditions,
		PartsUsed:         models.Parts{},
		CreatedAt:         s.now(),
	}
	if err := s.repo.Create(ctx, emergency); err != nil {
		return nil, appErrors.Internal(err, "failed to create emergency")
	}

	s.metrics.EmergencyCreated(emergency.Type, emergency.Priority)
	s.events.Publish(ctx, EventEmergencyCreated, emergency.ID, map[string]interface{}{
		"customer_id": emergency.CustomerID,
		"type":        emergency.Type,
		"priority":    emergency.Priority,
		"latitude":    emergency.Latitude,
		"longitude":   emergency.Longitude,
	})
	s.logger.Info("emergency created",
		zap.String("emergency_id", emergency.ID),
		zap.String("type", string(emergency.Type)),
		zap.String("priority", string(emergency.Priority)),
	)
	return emergency, nil
}

// Get returns one emergency. Customers may only read their own.
func (s *EmergencyService) Get(ctx context.Context, principal models.Principal, id string) (*models.EmergencyRequest, error) {
	emergency, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.Role == models.RoleCustomer && !principal.Owns(emergency.CustomerID) {
		return nil, appErrors.ErrForbidden
	}
	return emergency, nil
}

// List returns emergencies matching the query, most urgent first.
func (s *EmergencyService) List(ctx context.Context, principal models.Principal, query dto.EmergencyListQuery) ([]models.EmergencyRequest, *models.Pagination, error) {
	if query.Status != nil && !query.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown emergency status")
	}
	if query.Type != nil && !query.Type.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown emergency type")
	}
	if query.Priority != nil && !query.Priority.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown emergency priority")
	}
	filter := models.EmergencyFilter{
		Status:   query.Status,
		Type:     query.Type,
		Priority: query.Priority,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if principal.Role == models.RoleCustomer {
		filter.CustomerID = principal.ID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list emergencies")
	}
	page, size := normalisePage(query.Page, query.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateStatus moves an emergency to its next dispatch state and stamps the milestone.
func (s *EmergencyService) UpdateStatus(ctx context.Context, principal models.Principal, id string, req dto.UpdateEmergencyStatusRequest) (*models.EmergencyRequest, error) {
	if !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "dispatch authority required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown emergency status")
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == models.EmergencyCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "use the cancel operation to cancel an emergency")
	}
	if !CanTransition(current.Status, req.Status) {
		return nil, transitionError(current.Status, req.Status)
	}

	updated, err := s.repo.TransitionStatus(ctx, models.EmergencyTransition{
		ID:               id,
		From:             current.Status,
		To:               req.Status,
		At:               s.now(),
		DispatchNotes:    req.DispatchNotes,
		EstimatedArrival: req.EstimatedArrival,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyConflict(ctx, id, func(status models.EmergencyStatus) error {
				return transitionError(status, req.Status)
			})
		}
		return nil, appErrors.Internal(err, "failed to update emergency status")
	}

	s.metrics.EmergencyTransitioned(current.Status, updated.Status)
	s.events.Publish(ctx, EventEmergencyStatusChanged, updated.ID, map[string]interface{}{
		"from":        current.Status,
		"to":          updated.Status,
		"customer_id": updated.CustomerID,
	})
	s.logger.Info("emergency status updated",
		zap.String("emergency_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor", principal.ID),
	)
	return updated, nil
}

// Cancel diverts a non terminal emergency to cancelled on behalf of its owner or an admin.
func (s *EmergencyService) Cancel(ctx context.Context, principal models.Principal, id string, req dto.CancelEmergencyRequest) (*models.EmergencyRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cancellation reason required")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var by models.CancelledBy
	switch {
	case principal.IsAdmin():
		by = models.CancelledByAdmin
	case principal.Role == models.RoleCustomer && principal.Owns(current.CustomerID):
		by = models.CancelledByCustomer
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner or an admin can cancel this emergency")
	}
	if !CanCancel(current.Status) {
		return nil, transitionError(current.Status, models.EmergencyCancelled)
	}

	updated, err := s.repo.Cancel(ctx, models.EmergencyCancellation{ID: id, Reason: req.Reason, By: by, At: s.now()})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyConflict(ctx, id, func(status models.EmergencyStatus) error {
				return transitionError(status, models.EmergencyCancelled)
			})
		}
		return nil, appErrors.Internal(err, "failed to cancel emergency")
	}

	s.metrics.EmergencyTransitioned(current.Status, models.EmergencyCancelled)
	s.events.Publish(ctx, EventEmergencyCancelled, updated.ID, map[string]interface{}{
		"from":         current.Status,
		"cancelled_by": by,
		"reason":       req.Reason,
	})
	s.logger.Info("emergency cancelled", zap.String("emergency_id", id), zap.String("by", string(by)))
	return updated, nil
}

// RecordCost stores the parts and labor of a non terminal emergency and recomputes its total.
func (s *EmergencyService) RecordCost(ctx context.Context, principal models.Principal, id string, req dto.RecordCostRequest) (*models.EmergencyRequest, error) {
	if !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "dispatch authority required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cost payload")
	}
	if req.LaborCost.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "labor cost cannot be negative")
	}
	if !isMoney(req.LaborCost) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "labor cost cannot have more than 2 decimal places")
	}
	for _, part := range req.Parts {
		if part.Quantity < 0 || part.Cost.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("part %q has a negative quantity or cost", part.Name))
		}
		if !isMoney(part.Cost) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("part %q cost cannot have more than 2 decimal places", part.Name))
		}
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, costStateError(current.Status)
	}

	parts := models.Parts(req.Parts)
	if parts == nil {
		parts = models.Parts{}
	}
	updated, err := s.repo.RecordCost(ctx, models.EmergencyCost{
		ID:        id,
		Parts:     parts,
		LaborCost: req.LaborCost,
		TotalCost: parts.Total().Add(req.LaborCost),
		At:        s.now(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyConflict(ctx, id, costStateError)
		}
		return nil, appErrors.Internal(err, "failed to record emergency cost")
	}
	return updated, nil
}

func (s *EmergencyService) load(ctx context.Context, id string) (*models.EmergencyRequest, error) {
	emergency, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "emergency not found")
		}
		return nil, appErrors.Internal(err, "failed to load emergency")
	}
	return emergency, nil
}

// classifyConflict explains a conditional write that matched no row: the record vanished or
// another writer moved it first.
func (s *EmergencyService) classifyConflict(ctx context.Context, id string, conflict func(models.EmergencyStatus) error) error {
	latest, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	s.logger.Info("emergency write lost a race", zap.String("emergency_id", id), zap.String("status", string(latest.Status)))
	return conflict(latest.Status)
}

func transitionError(from, to models.EmergencyStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move emergency from %s to %s", from, to))
}

func costStateError(status models.EmergencyStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot record cost on a %s emergency", status))
}

func locationPoint(lat, lng *float64) (geo.Point, error) {
	if lat == nil || lng == nil {
		return geo.Point{}, appErrors.Clone(appErrors.ErrValidation, "latitude and longitude are required")
	}
	point := geo.Point{Latitude: *lat, Longitude: *lng}
	if !point.Valid() {
		return geo.Point{}, appErrors.Clone(appErrors.ErrValidation, "latitude must be within [-90,90] and longitude within [-180,180]")
	}
	return point, nil
}

func normalisePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
