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

	"github.com/noah-isme/roadside-assist-api/internal/models"
)

var diagnosisRowColumns = []string{
	"id", "customer_id", "audio_filename", "audio_original_name", "audio_mime_type", "audio_size", "audio_path",
	"vehicle_info", "symptoms", "driving_conditions", "when_occurs", "analysis_status", "confidence", "issue", "severity", "result_description",
	"recommendations", "estimated_cost_min", "estimated_cost_max", "cost_currency", "urgency", "model_version", "processing_time_ms",
	"error_message", "error_code", "customer_feedback", "created_at", "updated_at", "completed_at",
}

func TestDiagnosisRepositoryCreateForcesPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDiagnosisRepository(db)

	mock.ExpectExec("INSERT INTO diagnoses").
		WithArgs(sqlmock.AnyArg(), "cust-1", "audio-1.wav", "engine.wav", "audio/wav", int64(2048), "audio/audio-1.wav",
			sqlmock.AnyArg(), "squeal on start", nil, nil, models.DiagnosisPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	d := &models.Diagnosis{
		CustomerID: "cust-1",
		Audio:      models.AudioFile{Filename: "audio-1.wav", OriginalName: "engine.wav", MimeType: "audio/wav", Size: 2048, Path: "audio/audio-1.wav"},
		Symptoms:   "squeal on start",
		Status:     models.DiagnosisCompleted,
	}
	require.NoError(t, repo.Create(context.Background(), d))
	assert.Equal(t, models.DiagnosisPending, d.Status)
	assert.NotEmpty(t, d.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiagnosisRepositoryFindByIDGroupsCompletedResult(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDiagnosisRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(diagnosisRowColumns).AddRow(
		"d-1", "cust-1", "audio-1.wav", "engine.wav", "audio/wav", 2048, "audio/audio-1.wav",
		[]byte(`{"make":"Honda","fuel_type":"petrol"}`), "squeal", nil, nil, "completed", 92, "Brake Pad Wear", "high", "Brake pads are worn out.",
		"{\"Replace pads\",\"Check discs\"}", "8000", "15000", "LKR", "immediate", "v1.0.0", 8000,
		nil, nil, []byte(`{"was_accurate":true,"rating":4}`), now, now, now,
	)
	mock.ExpectQuery(`FROM diagnoses WHERE id = \$1`).WithArgs("d-1").WillReturnRows(rows)

	d, err := repo.FindByID(context.Background(), "d-1")
	require.NoError(t, err)
	require.NotNil(t, d.Result)
	assert.Nil(t, d.Failure)
	assert.Equal(t, "Brake Pad Wear", d.Result.Issue)
	assert.Equal(t, []string{"Replace pads", "Check discs"}, d.Result.Recommendations)
	assert.True(t, d.Result.EstimatedCost.Max.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, models.FuelPetrol, d.VehicleInfo.FuelType)
	require.NotNil(t, d.Feedback)
	assert.Equal(t, 4, d.Feedback.Rating)
}

func TestDiagnosisRepositoryFindByIDGroupsFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDiagnosisRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(diagnosisRowColumns).AddRow(
		"d-2", "cust-1", "audio-2.wav", "idle.wav", "audio/wav", 1024, "audio/audio-2.wav",
		[]byte(`{}`), nil, nil, nil, "failed", nil, nil, nil, nil,
		nil, nil, nil, nil, nil, nil, nil,
		"AI analysis failed", "AI_ERROR", nil, now, now, now,
	)
	mock.ExpectQuery(`FROM diagnoses WHERE id = \$1`).WithArgs("d-2").WillReturnRows(rows)

	d, err := repo.FindByID(context.Background(), "d-2")
	require.NoError(t, err)
	assert.Nil(t, d.Result)
	require.NotNil(t, d.Failure)
	assert.Equal(t, "AI_ERROR", d.Failure.Code)
	assert.Nil(t, d.Feedback)
}

func TestDiagnosisRepositoryConditionalWrites(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDiagnosisRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $2 AND analysis_status = 'pending'`)).
		WithArgs(at, "d-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := repo.MarkProcessing(context.Background(), "d-1", at)
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $13 AND analysis_status = 'processing'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	changed, err = repo.Complete(context.Background(), "deleted", models.DiagnosisResult{Issue: "Engine Belt Issues"}, at)
	require.NoError(t, err)
	assert.False(t, changed)

	mock.ExpectExec(regexp.QuoteMeta(`analysis_status IN ('pending', 'processing')`)).
		WithArgs("AI analysis failed", "AI_ERROR", at, "d-3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err = repo.Fail(context.Background(), "d-3", models.DiagnosisFailure{Message: "AI analysis failed", Code: "AI_ERROR"}, at)
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectExec(regexp.QuoteMeta(`analysis_status = 'completed' AND customer_feedback IS NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	changed, err = repo.SetFeedback(context.Background(), "d-1", models.CustomerFeedback{Rating: 5, SubmittedAt: at})
	require.NoError(t, err)
	assert.False(t, changed)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM diagnoses WHERE id = $1`)).
		WithArgs("d-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err = repo.Delete(context.Background(), "d-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiagnosisRepositoryStatsZeroFillsSeverities(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDiagnosisRepository(db)
	from, to := time.Now().Add(-24*time.Hour), time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"total", "completed", "avg_confidence"}).AddRow(3, 2, 89.5))
	mock.ExpectQuery(`SELECT severity AS key`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("high", 1).AddRow("medium", 1))

	stats, err := repo.Stats(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDiagnoses)
	assert.Equal(t, 89.5, stats.AverageConfidence)
	assert.Equal(t, 0, stats.SeverityBreakdown[models.SeverityCritical])
	assert.Equal(t, 1, stats.SeverityBreakdown[models.SeverityHigh])
}

func TestDiagnosisRepositoryListUnfinished(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDiagnosisRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE analysis_status IN ('pending', 'processing') ORDER BY id ASC LIMIT $1`)).
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("d-1").AddRow("d-2"))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE analysis_status IN ('pending', 'processing') AND id > $1 ORDER BY id ASC LIMIT $2`)).
		WithArgs("d-2", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("d-3"))

	ids, err := repo.ListUnfinished(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"d-1", "d-2"}, ids)

	ids, err = repo.ListUnfinished(context.Background(), "d-2", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d-3"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
