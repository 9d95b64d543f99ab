package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/jobs"
	"github.com/noah-isme/roadside-assist-api/pkg/storage"
)

type diagnosisStore interface {
	Create(ctx context.Context, d *models.Diagnosis) error
	FindByID(ctx context.Context, id string) (*models.Diagnosis, error)
	List(ctx context.Context, filter models.DiagnosisFilter) ([]models.Diagnosis, int, error)
	ListUnfinished(ctx context.Context, afterID string, limit int) ([]string, error)
	Fail(ctx context.Context, id string, failure models.DiagnosisFailure, at time.Time) (bool, error)
	SetFeedback(ctx context.Context, id string, feedback models.CustomerFeedback) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type audioStorage interface {
	SaveLimited(name string, r io.Reader, limit int64) (int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type downloadSigner interface {
	Generate(owner, relPath string) (string, time.Time, error)
	Parse(token string) (storage.DownloadClaims, error)
}

// DiagnosisConfig tunes audio intake.
type DiagnosisConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	AudioURLPrefix   string
}

// AudioDownload is an opened recording resolved from a signed token.
type AudioDownload struct {
	File     *os.File
	Filename string
	MimeType string
	Size     int64
}

// DiagnosisService accepts recordings, schedules their analysis and serves the outcome.
type DiagnosisService struct {
	repo      diagnosisStore
	storage   audioStorage
	queue     jobs.Dispatcher
	signer    downloadSigner
	cfg       DiagnosisConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDiagnosisService builds a DiagnosisService.
func NewDiagnosisService(repo diagnosisStore, store audioStorage, queue jobs.Dispatcher, signer downloadSigner, cfg DiagnosisConfig, validate *validator.Validate, logger *zap.Logger) *DiagnosisService {
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 << 20
	}
	if cfg.AudioURLPrefix == "" {
		cfg.AudioURLPrefix = "/api/v1/diagnoses/audio/"
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosisService{
		repo:      repo,
		storage:   store,
		queue:     queue,
		signer:    signer,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the recording, creates a pending diagnosis and schedules its analysis. It returns
// without waiting for the analysis.
func (s *DiagnosisService) Submit(ctx context.Context, principal models.Principal, upload dto.AudioUpload, req dto.SubmitDiagnosisRequest) (*dto.SubmitDiagnosisResponse, error) {
	if principal.Role != models.RoleCustomer {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only customers can submit recordings")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid diagnosis payload")
	}
	if fuel := req.VehicleInfo.FuelType; fuel != "" && !fuel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown fuel type")
	}
	mimeType, err := s.checkUpload(upload)
	if err != nil {
		return nil, err
	}

	blobName := "audio/audio-" + ulid.Make().String() + audioExtension(upload.Filename)
	written, err := s.storage.SaveLimited(blobName, upload.Content, s.cfg.MaxFileSizeBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, s.sizeError()
		}
		return nil, appErrors.Internal(err, "failed to store audio file")
	}

	diagnosis := &models.Diagnosis{
		CustomerID: principal.ID,
		Audio: models.AudioFile{
			Filename:     filepath.Base(blobName),
			OriginalName: filepath.Base(upload.Filename),
			MimeType:     mimeType,
			Size:         written,
			Path:         blobName,
		},
		VehicleInfo:       req.VehicleInfo,
		Symptoms:          req.Symptoms,
		DrivingConditions: req.DrivingConditions,
		WhenOccurs:        req.WhenOccurs,
		CreatedAt:         s.now(),
	}
	if err := s.repo.Create(ctx, diagnosis); err != nil {
		s.releaseAudio(blobName)
		return nil, appErrors.Internal(err, "failed to create diagnosis")
	}

	response := &dto.SubmitDiagnosisResponse{
		DiagnosisID:     diagnosis.ID,
		ReferenceNumber: diagnosis.ReferenceNumber(),
		Status:          models.DiagnosisPending,
	}
	if err := s.queue.Enqueue(jobs.Job{ID: diagnosis.ID, Type: JobTypeDiagnosisAnalyze}); err != nil {
		s.logger.Error("failed to schedule analysis", zap.String("diagnosis_id", diagnosis.ID), zap.Error(err))
		failure := models.DiagnosisFailure{Message: "analysis could not be scheduled", Code: failureCodeQueue}
		if _, failErr := s.repo.Fail(ctx, diagnosis.ID, failure, s.now()); failErr != nil {
			s.logger.Error("failed to mark diagnosis failed", zap.String("diagnosis_id", diagnosis.ID), zap.Error(failErr))
		} else {
			response.Status = models.DiagnosisFailed
		}
	}
	s.logger.Info("diagnosis submitted",
		zap.String("diagnosis_id", diagnosis.ID),
		zap.String("customer_id", principal.ID),
		zap.Int64("audio_bytes", written),
	)
	return response, nil
}

// Get returns one diagnosis to its owner or an admin.
func (s *DiagnosisService) Get(ctx context.Context, principal models.Principal, id string) (*models.Diagnosis, error) {
	diagnosis, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && !principal.Owns(diagnosis.CustomerID) {
		return nil, appErrors.ErrForbidden
	}
	return diagnosis, nil
}

// List returns the caller's diagnoses, or every diagnosis for admins.
func (s *DiagnosisService) List(ctx context.Context, principal models.Principal, query dto.DiagnosisListQuery) ([]models.Diagnosis, *models.Pagination, error) {
	filter := models.DiagnosisFilter{Status: query.Status, Severity: query.Severity, Page: query.Page, PageSize: query.PageSize}
	switch principal.Role {
	case models.RoleAdmin:
	case models.RoleCustomer:
		filter.CustomerID = principal.ID
	default:
		return nil, nil, appErrors.ErrForbidden
	}
	if query.Status != nil && !query.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown analysis status")
	}
	if query.Severity != nil && !query.Severity.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown severity")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list diagnoses")
	}
	page, size := normalisePage(query.Page, query.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// FetchResult reports analysis progress, the recorded failure or the finished result.
func (s *DiagnosisService) FetchResult(ctx context.Context, principal models.Principal, id string) (*dto.DiagnosisResultResponse, error) {
	diagnosis, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	response := &dto.DiagnosisResultResponse{
		DiagnosisID:     diagnosis.ID,
		ReferenceNumber: diagnosis.ReferenceNumber(),
		Status:          diagnosis.Status,
	}
	switch diagnosis.Status {
	case models.DiagnosisCompleted:
		response.State = dto.ResultReady
		response.Result = diagnosis.Result
		response.CompletedAt = diagnosis.CompletedAt
		if s.signer != nil && diagnosis.Audio.Path != "" {
			token, expires, err := s.signer.Generate(diagnosis.ID, diagnosis.Audio.Path)
			if err != nil {
				s.logger.Warn("failed to sign audio url", zap.String("diagnosis_id", diagnosis.ID), zap.Error(err))
			} else {
				response.AudioURL = s.cfg.AudioURLPrefix + token
				response.AudioURLExpires = &expires
			}
		}
	case models.DiagnosisFailed:
		response.State = dto.ResultFailed
		response.CompletedAt = diagnosis.CompletedAt
		if diagnosis.Failure != nil {
			response.ErrorMessage = diagnosis.Failure.Message
			response.ErrorCode = diagnosis.Failure.Code
		}
	default:
		response.State = dto.ResultInProgress
		response.Message = "analysis in progress"
	}
	return response, nil
}

// AddFeedback records the owner's rating of a completed diagnosis. Feedback is write-once.
func (s *DiagnosisService) AddFeedback(ctx context.Context, principal models.Principal, id string, req dto.DiagnosisFeedbackRequest) (*models.Diagnosis, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5 and was_accurate is required")
	}
	diagnosis, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Owns(diagnosis.CustomerID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can rate this diagnosis")
	}
	if err := feedbackStateError(diagnosis); err != nil {
		return nil, err
	}

	feedback := models.CustomerFeedback{
		WasAccurate: *req.WasAccurate,
		Rating:      req.Rating,
		Comments:    req.Comments,
		SubmittedAt: s.now(),
	}
	changed, err := s.repo.SetFeedback(ctx, id, feedback)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to save feedback")
	}
	if !changed {
		latest, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if stateErr := feedbackStateError(latest); stateErr != nil {
			return nil, stateErr
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "feedback could not be recorded")
	}
	diagnosis.Feedback = &feedback
	diagnosis.UpdatedAt = feedback.SubmittedAt
	return diagnosis, nil
}

// Delete removes a diagnosis and then its recording. A failed file removal is only logged.
func (s *DiagnosisService) Delete(ctx context.Context, principal models.Principal, id string) error {
	diagnosis, err := s.Get(ctx, principal, id)
	if err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to delete diagnosis")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "diagnosis not found")
	}
	s.releaseAudio(diagnosis.Audio.Path)
	s.logger.Info("diagnosis deleted", zap.String("diagnosis_id", id), zap.String("actor", principal.ID))
	return nil
}

// OpenAudio resolves a signed download token to the stored recording.
func (s *DiagnosisService) OpenAudio(ctx context.Context, token string) (*AudioDownload, error) {
	if s.signer == nil {
		return nil, appErrors.ErrNotFound
	}
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	diagnosis, err := s.load(ctx, claims.Owner)
	if err != nil {
		return nil, err
	}
	if diagnosis.Audio.Path != claims.Path {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link does not match recording")
	}
	file, err := s.storage.Open(claims.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recording not found")
		}
		return nil, appErrors.Internal(err, "failed to open recording")
	}
	return &AudioDownload{
		File:     file,
		Filename: diagnosis.Audio.OriginalName,
		MimeType: diagnosis.Audio.MimeType,
		Size:     diagnosis.Audio.Size,
	}, nil
}

// recoverPageSize bounds each unfinished-diagnosis scan during recovery.
var recoverPageSize = 500

// RecoverPending re-enqueues diagnoses left unfinished by a previous process, paging until the
// backlog is exhausted.
func (s *DiagnosisService) RecoverPending(ctx context.Context) (int, error) {
	scheduled, skipped := 0, 0
	after := ""
	for {
		ids, err := s.repo.ListUnfinished(ctx, after, recoverPageSize)
		if err != nil {
			return scheduled, fmt.Errorf("list unfinished diagnoses: %w", err)
		}
		for _, id := range ids {
			if err := s.queue.Enqueue(jobs.Job{ID: id, Type: JobTypeDiagnosisAnalyze}); err != nil {
				s.logger.Warn("failed to re-enqueue diagnosis", zap.String("diagnosis_id", id), zap.Error(err))
				skipped++
				continue
			}
			scheduled++
		}
		if len(ids) < recoverPageSize {
			break
		}
		after = ids[len(ids)-1]
	}
	if scheduled > 0 || skipped > 0 {
		s.logger.Info("recovered unfinished diagnoses", zap.Int("count", scheduled), zap.Int("skipped", skipped))
	}
	return scheduled, nil
}

func (s *DiagnosisService) load(ctx context.Context, id string) (*models.Diagnosis, error) {
	diagnosis, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "diagnosis not found")
		}
		return nil, appErrors.Internal(err, "failed to load diagnosis")
	}
	return diagnosis, nil
}

func (s *DiagnosisService) checkUpload(upload dto.AudioUpload) (string, error) {
	if upload.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "audio file is required")
	}
	if upload.Size > s.cfg.MaxFileSizeBytes {
		return "", s.sizeError()
	}
	mediaType, _, err := mime.ParseMediaType(upload.MimeType)
	if err != nil || !strings.HasPrefix(mediaType, "audio/") {
		return "", appErrors.Clone(appErrors.ErrValidation, "only audio files are allowed")
	}
	if len(s.cfg.AllowedMIMEs) > 0 {
		allowed := false
		for _, candidate := range s.cfg.AllowedMIMEs {
			if strings.EqualFold(candidate, mediaType) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", appErrors.Clone(appErrors.ErrValidation, "audio format "+mediaType+" is not supported")
		}
	}
	return mediaType, nil
}

func (s *DiagnosisService) sizeError() error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("audio file exceeds %d bytes", s.cfg.MaxFileSizeBytes))
}

func (s *DiagnosisService) releaseAudio(path string) {
	if path == "" {
		return
	}
	if err := s.storage.Delete(path); err != nil {
		s.logger.Warn("failed to remove audio file", zap.String("path", path), zap.Error(err))
	}
}

func feedbackStateError(d *models.Diagnosis) error {
	if d.Status != models.DiagnosisCompleted {
		return appErrors.Clone(appErrors.ErrInvalidState, "feedback is only accepted on completed diagnoses")
	}
	if d.Feedback != nil {
		return appErrors.Clone(appErrors.ErrInvalidState, "feedback already submitted")
	}
	return nil
}

func audioExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
