package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roadside-assist-api/internal/models"
	"github.com/noah-isme/roadside-assist-api/pkg/events"
	"github.com/noah-isme/roadside-assist-api/pkg/jobs"
)

const (
	// JobTypeDiagnosisAnalyze is the queue job type carrying a diagnosis ID.
	JobTypeDiagnosisAnalyze = "diagnosis:analyze"

	EventDiagnosisCompleted = "diagnosis.completed"
	EventDiagnosisFailed    = "diagnosis.failed"

	failureCodeAnalyzer = "AI_ERROR"
	failureCodeQueue    = "QUEUE_ERROR"
	failureCodeInternal = "INTERNAL_ERROR"
)

type diagnosisWorkStore interface {
	FindByID(ctx context.Context, id string) (*models.Diagnosis, error)
	MarkProcessing(ctx context.Context, id string, at time.Time) (bool, error)
	Complete(ctx context.Context, id string, result models.DiagnosisResult, at time.Time) (bool, error)
	Fail(ctx context.Context, id string, failure models.DiagnosisFailure, at time.Time) (bool, error)
}

// DiagnosisWorker runs queued analyses to a terminal state.
type DiagnosisWorker struct {
	repo     diagnosisWorkStore
	analyzer Analyzer
	events   events.Publisher
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewDiagnosisWorker constructs a worker.
func NewDiagnosisWorker(repo diagnosisWorkStore, analyzer Analyzer, publisher events.Publisher, metrics *MetricsService, logger *zap.Logger) *DiagnosisWorker {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosisWorker{
		repo:     repo,
		analyzer: analyzer,
		events:   publisher,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes one analysis job. Store errors are returned so the queue can retry; analyzer
// errors end the diagnosis as failed. Writes that match no row mean the record was deleted or
// already finished and are ignored.
func (w *DiagnosisWorker) Handle(ctx context.Context, job jobs.Job) error {
	log := w.logger.With(zap.String("diagnosis_id", job.ID), zap.Int("attempt", job.Attempt))

	if _, err := w.repo.MarkProcessing(ctx, job.ID, w.now()); err != nil {
		return err
	}
	diagnosis, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Info("diagnosis deleted before analysis")
			return nil
		}
		return err
	}
	if diagnosis.Status != models.DiagnosisProcessing {
		log.Debug("diagnosis not awaiting analysis", zap.String("status", string(diagnosis.Status)))
		return nil
	}

	started := time.Now()
	result, analyzeErr := w.analyzer.Analyze(ctx, diagnosis)
	elapsed := time.Since(started)
	if analyzeErr != nil {
		if ctx.Err() != nil {
			// shutdown; the record stays processing and is resumed on the next start
			return ctx.Err()
		}
		log.Warn("analysis failed", zap.Error(analyzeErr))
		return w.finishFailed(ctx, job.ID, models.DiagnosisFailure{Message: "AI analysis failed", Code: failureCodeAnalyzer}, elapsed)
	}

	if result.ModelVersion == "" {
		result.ModelVersion = AnalyzerModelVersion
	}
	result.ProcessingTimeMs = elapsed.Milliseconds()
	changed, err := w.repo.Complete(ctx, job.ID, result, w.now())
	if err != nil {
		return err
	}
	if !changed {
		log.Info("analysis result discarded, diagnosis no longer processing")
		return nil
	}

	w.metrics.DiagnosisFinished(models.DiagnosisCompleted, elapsed)
	w.events.Publish(ctx, EventDiagnosisCompleted, job.ID, map[string]interface{}{
		"customer_id": diagnosis.CustomerID,
		"issue":       result.Issue,
		"severity":    result.Severity,
		"confidence":  result.Confidence,
	})
	log.Info("analysis completed", zap.String("issue", result.Issue), zap.Int64("processing_ms", result.ProcessingTimeMs))
	return nil
}

// GiveUp marks a diagnosis failed once the queue stops retrying it.
func (w *DiagnosisWorker) GiveUp(ctx context.Context, job jobs.Job, cause error) {
	w.logger.Error("diagnosis job exhausted retries", zap.String("diagnosis_id", job.ID), zap.Error(cause))
	if err := w.finishFailed(ctx, job.ID, models.DiagnosisFailure{Message: "analysis could not be completed", Code: failureCodeInternal}, 0); err != nil {
		w.logger.Error("failed to mark diagnosis failed", zap.String("diagnosis_id", job.ID), zap.Error(err))
	}
}

func (w *DiagnosisWorker) finishFailed(ctx context.Context, id string, failure models.DiagnosisFailure, elapsed time.Duration) error {
	changed, err := w.repo.Fail(ctx, id, failure, w.now())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	w.metrics.DiagnosisFinished(models.DiagnosisFailed, elapsed)
	w.events.Publish(ctx, EventDiagnosisFailed, id, map[string]interface{}{
		"error_code":    failure.Code,
		"error_message": failure.Message,
	})
	return nil
}
