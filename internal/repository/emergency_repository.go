package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/roadside-assist-api/internal/models"
	"github.com/noah-isme/roadside-assist-api/pkg/geo"
)

const emergencyColumns = `id, customer_id, type, description, latitude, longitude, address, status, priority, vehicle_info,
contact_number, alternate_contact, passenger_count, has_injuries, weather_conditions, road_conditions, dispatch_notes,
estimated_arrival, assigned_at, actual_arrival, completed_at, parts_used, labor_cost, total_cost, cancellation_reason,
cancelled_by, created_at, updated_at`

const priorityOrder = `CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END`

// milestoneColumns maps a target status to the timestamp it stamps on first entry.
var milestoneColumns = map[models.EmergencyStatus]string{
	models.EmergencyDispatched: "assigned_at",
	models.EmergencyInProgress: "actual_arrival",
	models.EmergencyCompleted:  "completed_at",
}

// EmergencyRepository persists emergency requests. State dependent writes are single conditional
// UPDATE statements; a write that matches no row returns sql.ErrNoRows.
type EmergencyRepository struct {
	db *sqlx.DB
}

// NewEmergencyRepository constructs an EmergencyRepository.
func NewEmergencyRepository(db *sqlx.DB) *EmergencyRepository {
	return &EmergencyRepository{db: db}
}

// Create inserts a new emergency request.
func (r *EmergencyRepository) Create(ctx context.Context, e *models.EmergencyRequest) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt
	if e.PartsUsed == nil {
		e.PartsUsed = models.Parts{}
	}
	const query = `INSERT INTO emergency_requests (id, customer_id, type, description, latitude, longitude, address, status, priority,
vehicle_info, contact_number, alternate_contact, passenger_count, has_injuries, weather_conditions, road_conditions,
parts_used, labor_cost, total_cost, created_at, updated_at)
VALUES (:id, :customer_id, :type, :description, :latitude, :longitude, :address, :status, :priority,
:vehicle_info, :contact_number, :alternate_contact, :passenger_count, :has_injuries, :weather_conditions, :road_conditions,
:parts_used, :labor_cost, :total_cost, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("create emergency: %w", err)
	}
	return nil
}

// FindByID fetches an emergency by ID.
func (r *EmergencyRepository) FindByID(ctx context.Context, id string) (*models.EmergencyRequest, error) {
	query := `SELECT ` + emergencyColumns + ` FROM emergency_requests WHERE id = $1`
	var e models.EmergencyRequest
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns emergencies matching the filter ordered critical first, then newest first.
func (r *EmergencyRepository) List(ctx context.Context, filter models.EmergencyFilter) ([]models.EmergencyRequest, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM emergency_requests WHERE %s ORDER BY %s, created_at DESC LIMIT %d OFFSET %d`,
		emergencyColumns, where, priorityOrder, limit, offset)
	var items []models.EmergencyRequest
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list emergencies: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM emergency_requests WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count emergencies: %w", err)
	}
	return items, total, nil
}

// FindWithinBounds returns emergencies in the given statuses whose coordinates fall inside the rectangle.
// The result is a superset of any circle the rectangle bounds.
func (r *EmergencyRepository) FindWithinBounds(ctx context.Context, bounds geo.Bounds, statuses []models.EmergencyStatus) ([]models.EmergencyRequest, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	args := []interface{}{pq.Array(values)}
	conditions, args := boundsConditions(bounds, args)
	conditions = append([]string{"status = ANY($1)"}, conditions...)

	query := fmt.Sprintf(`SELECT %s FROM emergency_requests WHERE %s`, emergencyColumns, strings.Join(conditions, " AND "))
	var items []models.EmergencyRequest
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("find emergencies within bounds: %w", err)
	}
	return items, nil
}

// TransitionStatus moves an emergency from t.From to t.To if it is still in t.From, stamping the
// target milestone only when it is unset.
func (r *EmergencyRepository) TransitionStatus(ctx context.Context, t models.EmergencyTransition) (*models.EmergencyRequest, error) {
	set := []string{"status = $1", "updated_at = $2"}
	if column, ok := milestoneColumns[t.To]; ok {
		set = append(set, fmt.Sprintf("%s = COALESCE(%s, $2)", column, column))
	}
	set = append(set,
		"dispatch_notes = COALESCE($3, dispatch_notes)",
		"estimated_arrival = COALESCE($4, estimated_arrival)",
	)
	query := fmt.Sprintf(`UPDATE emergency_requests SET %s WHERE id = $5 AND status = $6 RETURNING %s`,
		strings.Join(set, ", "), emergencyColumns)

	var e models.EmergencyRequest
	if err := r.db.GetContext(ctx, &e, query, t.To, t.At, t.DispatchNotes, t.EstimatedArrival, t.ID, t.From); err != nil {
		return nil, fmt.Errorf("transition emergency: %w", err)
	}
	return &e, nil
}

// Cancel moves a non terminal emergency to cancelled.
func (r *EmergencyRepository) Cancel(ctx context.Context, c models.EmergencyCancellation) (*models.EmergencyRequest, error) {
	query := `UPDATE emergency_requests SET status = $1, cancellation_reason = $2, cancelled_by = $3, updated_at = $4
WHERE id = $5 AND status = ANY($6) RETURNING ` + emergencyColumns
	var e models.EmergencyRequest
	if err := r.db.GetContext(ctx, &e, query, models.EmergencyCancelled, c.Reason, c.By, c.At, c.ID, activeStatuses()); err != nil {
		return nil, fmt.Errorf("cancel emergency: %w", err)
	}
	return &e, nil
}

// RecordCost replaces parts and labour cost on a non terminal emergency.
func (r *EmergencyRepository) RecordCost(ctx context.Context, c models.EmergencyCost) (*models.EmergencyRequest, error) {
	query := `UPDATE emergency_requests SET parts_used = $1, labor_cost = $2, total_cost = $3, updated_at = $4
WHERE id = $5 AND status = ANY($6) RETURNING ` + emergencyColumns
	var e models.EmergencyRequest
	if err := r.db.GetContext(ctx, &e, query, c.Parts, c.LaborCost, c.TotalCost, c.At, c.ID, activeStatuses()); err != nil {
		return nil, fmt.Errorf("record emergency cost: %w", err)
	}
	return &e, nil
}

func activeStatuses() interface{} {
	values := make([]string, len(models.ActiveEmergencyStatuses))
	for i, s := range models.ActiveEmergencyStatuses {
		values[i] = string(s)
	}
	return pq.Array(values)
}
