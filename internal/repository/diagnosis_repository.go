package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/roadside-assist-api/internal/models"
)

const diagnosisColumns = `id, customer_id, audio_filename, audio_original_name, audio_mime_type, audio_size, audio_path,
vehicle_info, symptoms, driving_conditions, when_occurs, analysis_status, confidence, issue, severity, result_description,
recommendations, estimated_cost_min, estimated_cost_max, cost_currency, urgency, model_version, processing_time_ms,
error_message, error_code, customer_feedback, created_at, updated_at, completed_at`

// diagnosisRow mirrors the diagnoses table. Result and error columns are nullable and grouped
// back into the model by toModel.
type diagnosisRow struct {
	models.AudioFile
	ID                string                   `db:"id"`
	CustomerID        string                   `db:"customer_id"`
	VehicleInfo       models.DiagnosisVehicle  `db:"vehicle_info"`
	Symptoms          sql.NullString           `db:"symptoms"`
	DrivingConditions sql.NullString           `db:"driving_conditions"`
	WhenOccurs        sql.NullString           `db:"when_occurs"`
	Status            models.DiagnosisStatus   `db:"analysis_status"`
	Confidence        sql.NullInt64            `db:"confidence"`
	Issue             sql.NullString           `db:"issue"`
	Severity          sql.NullString           `db:"severity"`
	Description       sql.NullString           `db:"result_description"`
	Recommendations   pq.StringArray           `db:"recommendations"`
	CostMin           decimal.NullDecimal      `db:"estimated_cost_min"`
	CostMax           decimal.NullDecimal      `db:"estimated_cost_max"`
	CostCurrency      sql.NullString           `db:"cost_currency"`
	Urgency           sql.NullString           `db:"urgency"`
	ModelVersion      sql.NullString           `db:"model_version"`
	ProcessingTimeMs  sql.NullInt64            `db:"processing_time_ms"`
	ErrorMessage      sql.NullString           `db:"error_message"`
	ErrorCode         sql.NullString           `db:"error_code"`
	Feedback          *models.CustomerFeedback `db:"customer_feedback"`
	CreatedAt         time.Time                `db:"created_at"`
	UpdatedAt         time.Time                `db:"updated_at"`
	CompletedAt       *time.Time               `db:"completed_at"`
}

func (row diagnosisRow) toModel() *models.Diagnosis {
	d := &models.Diagnosis{
		ID:                row.ID,
		CustomerID:        row.CustomerID,
		Audio:             row.AudioFile,
		VehicleInfo:       row.VehicleInfo,
		Symptoms:          row.Symptoms.String,
		DrivingConditions: row.DrivingConditions.String,
		WhenOccurs:        row.WhenOccurs.String,
		Status:            row.Status,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
		CompletedAt:       row.CompletedAt,
		Feedback:          row.Feedback,
	}
	switch {
	case row.Issue.Valid:
		d.Result = &models.DiagnosisResult{
			Confidence:      int(row.Confidence.Int64),
			Issue:           row.Issue.String,
			Severity:        models.Severity(row.Severity.String),
			Description:     row.Description.String,
			Recommendations: []string(row.Recommendations),
			EstimatedCost: models.CostRange{
				Min:      row.CostMin.Decimal,
				Max:      row.CostMax.Decimal,
				Currency: row.CostCurrency.String,
			},
			Urgency:          models.Urgency(row.Urgency.String),
			ModelVersion:     row.ModelVersion.String,
			ProcessingTimeMs: row.ProcessingTimeMs.Int64,
		}
	case row.ErrorCode.Valid:
		d.Failure = &models.DiagnosisFailure{Message: row.ErrorMessage.String, Code: row.ErrorCode.String}
	}
	return d
}

// DiagnosisRepository persists diagnoses. Status changes are conditional on the current status so a
// late worker write against a deleted or finished record affects no rows.
type DiagnosisRepository struct {
	db *sqlx.DB
}

// NewDiagnosisRepository constructs a DiagnosisRepository.
func NewDiagnosisRepository(db *sqlx.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

// Create inserts a pending diagnosis.
func (r *DiagnosisRepository) Create(ctx context.Context, d *models.Diagnosis) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.UpdatedAt = d.CreatedAt
	d.Status = models.DiagnosisPending
	const query = `INSERT INTO diagnoses (id, customer_id, audio_filename, audio_original_name, audio_mime_type, audio_size, audio_path,
vehicle_info, symptoms, driving_conditions, when_occurs, analysis_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(ctx, query,
		d.ID, d.CustomerID, d.Audio.Filename, d.Audio.OriginalName, d.Audio.MimeType, d.Audio.Size, d.Audio.Path,
		d.VehicleInfo, nullable(d.Symptoms), nullable(d.DrivingConditions), nullable(d.WhenOccurs), d.Status, d.CreatedAt, d.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create diagnosis: %w", err)
	}
	return nil
}

// FindByID fetches a diagnosis by ID.
func (r *DiagnosisRepository) FindByID(ctx context.Context, id string) (*models.Diagnosis, error) {
	var row diagnosisRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+diagnosisColumns+` FROM diagnoses WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// List returns diagnoses matching the filter, newest first.
func (r *DiagnosisRepository) List(ctx context.Context, filter models.DiagnosisFilter) ([]models.Diagnosis, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("analysis_status = $%d", len(args)))
	}
	if filter.Severity != nil {
		args = append(args, *filter.Severity)
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM diagnoses WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, diagnosisColumns, where, limit, offset)
	var rows []diagnosisRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list diagnoses: %w", err)
	}
	items := make([]models.Diagnosis, 0, len(rows))
	for _, row := range rows {
		items = append(items, *row.toModel())
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM diagnoses WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count diagnoses: %w", err)
	}
	return items, total, nil
}

// ListUnfinished returns up to limit IDs of diagnoses still pending or processing, ordered by id and
// starting after afterID. An empty afterID starts from the beginning.
func (r *DiagnosisRepository) ListUnfinished(ctx context.Context, afterID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT id FROM diagnoses WHERE analysis_status IN ('pending', 'processing')`
	args := []interface{}{}
	if afterID != "" {
		args = append(args, afterID)
		query += ` AND id > $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY id ASC LIMIT $%d`, len(args))

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list unfinished diagnoses: %w", err)
	}
	return ids, nil
}

// MarkProcessing moves a pending diagnosis to processing. It reports whether a row changed.
func (r *DiagnosisRepository) MarkProcessing(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE diagnoses SET analysis_status = 'processing', updated_at = $1 WHERE id = $2 AND analysis_status = 'pending'`
	return r.execConditional(ctx, "mark diagnosis processing", query, at, id)
}

// Complete writes the whole result group on a processing diagnosis.
func (r *DiagnosisRepository) Complete(ctx context.Context, id string, result models.DiagnosisResult, at time.Time) (bool, error) {
	const query = `UPDATE diagnoses SET analysis_status = 'completed', confidence = $1, issue = $2, severity = $3,
result_description = $4, recommendations = $5, estimated_cost_min = $6, estimated_cost_max = $7, cost_currency = $8,
urgency = $9, model_version = $10, processing_time_ms = $11, updated_at = $12, completed_at = $12
WHERE id = $13 AND analysis_status = 'processing'`
	return r.execConditional(ctx, "complete diagnosis", query,
		result.Confidence, result.Issue, result.Severity, result.Description, pq.StringArray(result.Recommendations),
		result.EstimatedCost.Min, result.EstimatedCost.Max, result.EstimatedCost.Currency,
		result.Urgency, result.ModelVersion, result.ProcessingTimeMs, at, id,
	)
}

// Fail writes the error group on a pending or processing diagnosis.
func (r *DiagnosisRepository) Fail(ctx context.Context, id string, failure models.DiagnosisFailure, at time.Time) (bool, error) {
	const query = `UPDATE diagnoses SET analysis_status = 'failed', error_message = $1, error_code = $2, updated_at = $3, completed_at = $3
WHERE id = $4 AND analysis_status IN ('pending', 'processing')`
	return r.execConditional(ctx, "fail diagnosis", query, failure.Message, failure.Code, at, id)
}

// SetFeedback stores feedback once on a completed diagnosis.
func (r *DiagnosisRepository) SetFeedback(ctx context.Context, id string, feedback models.CustomerFeedback) (bool, error) {
	const query = `UPDATE diagnoses SET customer_feedback = $1, updated_at = $2
WHERE id = $3 AND analysis_status = 'completed' AND customer_feedback IS NULL`
	return r.execConditional(ctx, "set diagnosis feedback", query, feedback, feedback.SubmittedAt, id)
}

// Delete removes a diagnosis row. It reports whether a row was removed.
func (r *DiagnosisRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.execConditional(ctx, "delete diagnosis", `DELETE FROM diagnoses WHERE id = $1`, id)
}

// Stats aggregates diagnoses created within the range.
func (r *DiagnosisRepository) Stats(ctx context.Context, from, to time.Time) (*models.DiagnosisStats, error) {
	stats := &models.DiagnosisStats{From: from, To: to, SeverityBreakdown: map[models.Severity]int{}}
	for _, severity := range models.AllSeverities {
		stats.SeverityBreakdown[severity] = 0
	}

	var totals struct {
		Total     int             `db:"total"`
		Completed int             `db:"completed"`
		AvgConf   sql.NullFloat64 `db:"avg_confidence"`
	}
	const totalsQuery = `SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE analysis_status = 'completed') AS completed,
AVG(confidence) FILTER (WHERE analysis_status = 'completed') AS avg_confidence
FROM diagnoses WHERE created_at BETWEEN $1 AND $2`
	if err := r.db.GetContext(ctx, &totals, totalsQuery, from, to); err != nil {
		return nil, fmt.Errorf("diagnosis totals: %w", err)
	}
	stats.TotalDiagnoses = totals.Total
	stats.CompletedDiagnoses = totals.Completed
	stats.AverageConfidence = totals.AvgConf.Float64

	var counts []models.StatusCount
	const severityQuery = `SELECT severity AS key, COUNT(*) AS count FROM diagnoses
WHERE created_at BETWEEN $1 AND $2 AND severity IS NOT NULL GROUP BY severity`
	if err := r.db.SelectContext(ctx, &counts, severityQuery, from, to); err != nil {
		return nil, fmt.Errorf("diagnosis severity breakdown: %w", err)
	}
	for _, c := range counts {
		stats.SeverityBreakdown[models.Severity(c.Key)] = c.Count
	}
	return stats, nil
}

func (r *DiagnosisRepository) execConditional(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return affected > 0, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
