package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/jobs"
	"github.com/noah-isme/roadside-assist-api/pkg/storage"
)

type diagnosisStoreStub struct {
	mu        sync.Mutex
	items     map[string]*models.Diagnosis
	seq       int
	createErr error
}

func newDiagnosisStoreStub() *diagnosisStoreStub {
	return &diagnosisStoreStub{items: map[string]*models.Diagnosis{}}
}

func (s *diagnosisStoreStub) Create(_ context.Context, d *models.Diagnosis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.seq++
	d.ID = fmt.Sprintf("diag-%d", s.seq)
	d.Status = models.DiagnosisPending
	clone := *d
	s.items[d.ID] = &clone
	return nil
}

func (s *diagnosisStoreStub) FindByID(_ context.Context, id string) (*models.Diagnosis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *d
	return &clone, nil
}

func (s *diagnosisStoreStub) List(_ context.Context, filter models.DiagnosisFilter) ([]models.Diagnosis, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Diagnosis
	for _, d := range s.items {
		if filter.CustomerID != "" && d.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (s *diagnosisStoreStub) ListUnfinished(_ context.Context, afterID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, d := range s.items {
		if !d.Status.IsTerminal() && id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *diagnosisStoreStub) MarkProcessing(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok || d.Status != models.DiagnosisPending {
		return false, nil
	}
	d.Status = models.DiagnosisProcessing
	d.UpdatedAt = at
	return true, nil
}

func (s *diagnosisStoreStub) Complete(_ context.Context, id string, result models.DiagnosisResult, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok || d.Status != models.DiagnosisProcessing {
		return false, nil
	}
	d.Status = models.DiagnosisCompleted
	d.Result = &result
	d.CompletedAt = &at
	return true, nil
}

func (s *diagnosisStoreStub) Fail(_ context.Context, id string, failure models.DiagnosisFailure, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok || d.Status.IsTerminal() {
		return false, nil
	}
	d.Status = models.DiagnosisFailed
	d.Failure = &failure
	d.CompletedAt = &at
	return true, nil
}

func (s *diagnosisStoreStub) SetFeedback(_ context.Context, id string, feedback models.CustomerFeedback) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok || d.Status != models.DiagnosisCompleted || d.Feedback != nil {
		return false, nil
	}
	d.Feedback = &feedback
	return true, nil
}

func (s *diagnosisStoreStub) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

func (s *diagnosisStoreStub) get(id string) *models.Diagnosis {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok {
		return nil
	}
	clone := *d
	return &clone
}

// recordingQueue captures jobs instead of running them.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type analyzerFunc func(ctx context.Context, d *models.Diagnosis) (models.DiagnosisResult, error)

func (f analyzerFunc) Analyze(ctx context.Context, d *models.Diagnosis) (models.DiagnosisResult, error) {
	return f(ctx, d)
}

type diagnosisFixture struct {
	svc     *DiagnosisService
	worker  *DiagnosisWorker
	repo    *diagnosisStoreStub
	queue   *recordingQueue
	storage *storage.LocalStorage
	events  *eventRecorder
}

func newDiagnosisFixture(t *testing.T, analyzer Analyzer) *diagnosisFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newDiagnosisStoreStub()
	queue := &recordingQueue{}
	recorder := &eventRecorder{}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewDiagnosisService(repo, store, queue, signer, DiagnosisConfig{MaxFileSizeBytes: 64}, nil, nil)
	if analyzer == nil {
		analyzer = NewSimulatedAnalyzer(0, 0, rand.New(rand.NewPCG(1, 2)))
	}
	worker := NewDiagnosisWorker(repo, analyzer, recorder, nil, nil)
	return &diagnosisFixture{svc: svc, worker: worker, repo: repo, queue: queue, storage: store, events: recorder}
}

func audioUpload(content string) dto.AudioUpload {
	return dto.AudioUpload{Filename: "Engine Noise.WAV", MimeType: "audio/wav", Size: int64(len(content)), Content: strings.NewReader(content)}
}

func (f *diagnosisFixture) submit(t *testing.T) string {
	t.Helper()
	resp, err := f.svc.Submit(context.Background(), customerAlice, audioUpload("RIFF....WAVE"), dto.SubmitDiagnosisRequest{Symptoms: "squeal on cold start"})
	require.NoError(t, err)
	return resp.DiagnosisID
}

func TestDiagnosisSubmitStoresAudioAndEnqueues(t *testing.T) {
	f := newDiagnosisFixture(t, nil)

	resp, err := f.svc.Submit(context.Background(), customerAlice, audioUpload("RIFF....WAVE"), dto.SubmitDiagnosisRequest{
		VehicleInfo: models.DiagnosisVehicle{Make: "Toyota", Model: "Axio", FuelType: models.FuelHybrid},
	})
	require.NoError(t, err)
	assert.Equal(t, models.DiagnosisPending, resp.Status)
	assert.True(t, strings.HasPrefix(resp.ReferenceNumber, "DGN-"))

	stored := f.repo.get(resp.DiagnosisID)
	require.NotNil(t, stored)
	assert.Equal(t, models.DiagnosisPending, stored.Status)
	assert.Regexp(t, `^audio/audio-[0-9A-Z]{26}\.wav$`, stored.Audio.Path)
	assert.Equal(t, "Engine Noise.WAV", stored.Audio.OriginalName)
	assert.Equal(t, int64(12), stored.Audio.Size)

	file, err := f.storage.Open(stored.Audio.Path)
	require.NoError(t, err)
	data, _ := io.ReadAll(file)
	_ = file.Close()
	assert.Equal(t, "RIFF....WAVE", string(data))

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, jobs.Job{ID: resp.DiagnosisID, Type: JobTypeDiagnosisAnalyze}, f.queue.jobs[0])
}

func TestDiagnosisSubmitValidation(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	ctx := context.Background()

	notAudio := audioUpload("%PDF")
	notAudio.MimeType = "application/pdf"
	_, err := f.svc.Submit(ctx, customerAlice, notAudio, dto.SubmitDiagnosisRequest{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	big := dto.AudioUpload{Filename: "long.mp3", MimeType: "audio/mpeg", Size: 100, Content: bytes.NewReader(make([]byte, 100))}
	_, err = f.svc.Submit(ctx, customerAlice, big, dto.SubmitDiagnosisRequest{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	lying := dto.AudioUpload{Filename: "long.mp3", MimeType: "audio/mpeg", Size: 1, Content: bytes.NewReader(make([]byte, 100))}
	_, err = f.svc.Submit(ctx, customerAlice, lying, dto.SubmitDiagnosisRequest{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = f.svc.Submit(ctx, customerAlice, dto.AudioUpload{MimeType: "audio/wav"}, dto.SubmitDiagnosisRequest{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = f.svc.Submit(ctx, customerAlice, audioUpload("x"), dto.SubmitDiagnosisRequest{VehicleInfo: models.DiagnosisVehicle{FuelType: "steam"}})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = f.svc.Submit(ctx, garageOwner, audioUpload("x"), dto.SubmitDiagnosisRequest{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	assert.Empty(t, f.queue.jobs)
	assert.Empty(t, f.repo.items)
}

func TestDiagnosisSubmitRemovesAudioWhenRecordFails(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	f.repo.createErr = errors.New("insert failed")

	_, err := f.svc.Submit(context.Background(), customerAlice, audioUpload("RIFF"), dto.SubmitDiagnosisRequest{})
	require.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))

	entries, readErr := os.ReadDir(f.storage.Path("audio"))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestDiagnosisSubmitMarksFailedWhenQueueUnavailable(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	f.queue.err = errors.New("queue full")

	resp, err := f.svc.Submit(context.Background(), customerAlice, audioUpload("RIFF"), dto.SubmitDiagnosisRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.DiagnosisFailed, resp.Status)

	stored := f.repo.get(resp.DiagnosisID)
	require.NotNil(t, stored.Failure)
	assert.Equal(t, "QUEUE_ERROR", stored.Failure.Code)
}

func TestDiagnosisPipelineCompletes(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	id := f.submit(t)

	result, err := f.svc.FetchResult(context.Background(), customerAlice, id)
	require.NoError(t, err)
	assert.Equal(t, dto.ResultInProgress, result.State)
	assert.Nil(t, result.Result)

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.jobs[0]))

	stored := f.repo.get(id)
	assert.Equal(t, models.DiagnosisCompleted, stored.Status)
	require.NotNil(t, stored.Result)
	assert.Nil(t, stored.Failure)
	assert.Equal(t, AnalyzerModelVersion, stored.Result.ModelVersion)
	assert.Contains(t, []int{87, 92}, stored.Result.Confidence)
	assert.Equal(t, "LKR", stored.Result.EstimatedCost.Currency)
	assert.Equal(t, []string{EventDiagnosisCompleted}, f.events.types())

	result, err = f.svc.FetchResult(context.Background(), customerAlice, id)
	require.NoError(t, err)
	assert.Equal(t, dto.ResultReady, result.State)
	require.NotNil(t, result.Result)
	assert.True(t, strings.HasPrefix(result.AudioURL, "/api/v1/diagnoses/audio/"))
	require.NotNil(t, result.AudioURLExpires)

	download, err := f.svc.OpenAudio(context.Background(), strings.TrimPrefix(result.AudioURL, "/api/v1/diagnoses/audio/"))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "audio/wav", download.MimeType)
}

func TestDiagnosisPipelineRecordsAnalyzerFailure(t *testing.T) {
	f := newDiagnosisFixture(t, analyzerFunc(func(context.Context, *models.Diagnosis) (models.DiagnosisResult, error) {
		return models.DiagnosisResult{}, ErrAnalysisFailed
	}))
	id := f.submit(t)

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.jobs[0]))

	stored := f.repo.get(id)
	assert.Equal(t, models.DiagnosisFailed, stored.Status)
	assert.Nil(t, stored.Result)
	require.NotNil(t, stored.Failure)
	assert.Equal(t, "AI_ERROR", stored.Failure.Code)
	assert.Equal(t, "AI analysis failed", stored.Failure.Message)

	result, err := f.svc.FetchResult(context.Background(), customerAlice, id)
	require.NoError(t, err)
	assert.Equal(t, dto.ResultFailed, result.State)
	assert.Equal(t, "AI_ERROR", result.ErrorCode)
}

func TestDiagnosisWorkerIgnoresDeletedRecord(t *testing.T) {
	var f *diagnosisFixture
	f = newDiagnosisFixture(t, analyzerFunc(func(ctx context.Context, d *models.Diagnosis) (models.DiagnosisResult, error) {
		require.NoError(t, f.svc.Delete(ctx, customerAlice, d.ID))
		return simulatedResults[0], nil
	}))
	id := f.submit(t)

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.jobs[0]))
	assert.Nil(t, f.repo.get(id))
	assert.Empty(t, f.events.types())

	require.NoError(t, f.worker.Handle(context.Background(), jobs.Job{ID: "never-existed"}))
}

func TestDiagnosisWorkerLeavesRecordProcessingOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newDiagnosisFixture(t, analyzerFunc(func(ctx context.Context, _ *models.Diagnosis) (models.DiagnosisResult, error) {
		cancel()
		return models.DiagnosisResult{}, ctx.Err()
	}))
	id := f.submit(t)

	err := f.worker.Handle(ctx, f.queue.jobs[0])
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.DiagnosisProcessing, f.repo.get(id).Status)
	assert.Empty(t, f.events.types())
}

func TestDiagnosisWorkerGiveUpMarksFailed(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	id := f.submit(t)

	f.worker.GiveUp(context.Background(), jobs.Job{ID: id}, errors.New("db down"))
	stored := f.repo.get(id)
	assert.Equal(t, models.DiagnosisFailed, stored.Status)
	assert.Equal(t, "INTERNAL_ERROR", stored.Failure.Code)

	f.worker.GiveUp(context.Background(), jobs.Job{ID: id}, errors.New("again"))
	assert.Equal(t, []string{EventDiagnosisFailed}, f.events.types())
}

func TestDiagnosisWorkerResumesProcessingAfterRestart(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	id := f.submit(t)
	_, err := f.repo.MarkProcessing(context.Background(), id, time.Now())
	require.NoError(t, err)

	scheduled, err := f.svc.RecoverPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, scheduled)

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.jobs[len(f.queue.jobs)-1]))
	assert.Equal(t, models.DiagnosisCompleted, f.repo.get(id).Status)
}

func TestDiagnosisRecoverPendingPagesThroughBacklog(t *testing.T) {
	previous := recoverPageSize
	recoverPageSize = 2
	defer func() { recoverPageSize = previous }()

	f := newDiagnosisFixture(t, nil)
	for i := 0; i < 5; i++ {
		f.submit(t)
	}
	f.queue.jobs = nil

	scheduled, err := f.svc.RecoverPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, scheduled)
	seen := map[string]bool{}
	for _, job := range f.queue.jobs {
		seen[job.ID] = true
	}
	assert.Len(t, seen, 5)
}

func TestDiagnosisFetchResultAccess(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	id := f.submit(t)

	_, err := f.svc.FetchResult(context.Background(), customerBob, id)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))
	_, err = f.svc.FetchResult(context.Background(), adminUser, id)
	assert.NoError(t, err)
	_, err = f.svc.FetchResult(context.Background(), customerAlice, "missing")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestDiagnosisFeedbackIsWriteOnce(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	id := f.submit(t)
	accurate := true
	req := dto.DiagnosisFeedbackRequest{WasAccurate: &accurate, Rating: 4, Comments: "spot on"}

	_, err := f.svc.AddFeedback(context.Background(), customerAlice, id, req)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInvalidState.Code), "pending diagnosis accepts no feedback")

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.jobs[0]))

	_, err = f.svc.AddFeedback(context.Background(), customerBob, id, req)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))
	_, err = f.svc.AddFeedback(context.Background(), adminUser, id, req)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	bad := req
	bad.Rating = 6
	_, err = f.svc.AddFeedback(context.Background(), customerAlice, id, bad)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	updated, err := f.svc.AddFeedback(context.Background(), customerAlice, id, req)
	require.NoError(t, err)
	require.NotNil(t, updated.Feedback)
	assert.Equal(t, 4, updated.Feedback.Rating)

	_, err = f.svc.AddFeedback(context.Background(), customerAlice, id, req)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInvalidState.Code))
	assert.Equal(t, "spot on", f.repo.get(id).Feedback.Comments)
}

func TestDiagnosisDeleteReleasesAudio(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	id := f.submit(t)
	path := f.repo.get(id).Audio.Path

	err := f.svc.Delete(context.Background(), customerBob, id)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	require.NoError(t, f.svc.Delete(context.Background(), adminUser, id))
	assert.Nil(t, f.repo.get(id))
	_, err = f.storage.Open(path)
	assert.Error(t, err)

	err = f.svc.Delete(context.Background(), adminUser, id)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestDiagnosisOpenAudioRejectsBadTokens(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	id := f.submit(t)

	_, err := f.svc.OpenAudio(context.Background(), "not-a-token")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrUnauthorized.Code))

	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	token, _, err := signer.Generate(id, "audio/someone-else.wav")
	require.NoError(t, err)
	_, err = f.svc.OpenAudio(context.Background(), token)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))
}

func TestDiagnosisListScopesCustomers(t *testing.T) {
	f := newDiagnosisFixture(t, nil)
	f.submit(t)
	_, err := f.svc.Submit(context.Background(), customerBob, audioUpload("RIFF"), dto.SubmitDiagnosisRequest{})
	require.NoError(t, err)

	mine, pagination, err := f.svc.List(context.Background(), customerAlice, dto.DiagnosisListQuery{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, 1, pagination.TotalCount)

	all, _, err := f.svc.List(context.Background(), adminUser, dto.DiagnosisListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, _, err = f.svc.List(context.Background(), garageOwner, dto.DiagnosisListQuery{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))
}

func TestSimulatedAnalyzer(t *testing.T) {
	always := NewSimulatedAnalyzer(0, 1, rand.New(rand.NewPCG(7, 7)))
	_, err := always.Analyze(context.Background(), &models.Diagnosis{})
	assert.ErrorIs(t, err, ErrAnalysisFailed)

	never := NewSimulatedAnalyzer(0, 0, rand.New(rand.NewPCG(7, 7)))
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		result, err := never.Analyze(context.Background(), &models.Diagnosis{})
		require.NoError(t, err)
		seen[result.Issue] = true
		assert.Equal(t, AnalyzerModelVersion, result.ModelVersion)
		assert.True(t, result.EstimatedCost.Min.LessThan(result.EstimatedCost.Max))
	}
	assert.Len(t, seen, 2)

	slow := NewSimulatedAnalyzer(time.Minute, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = slow.Analyze(ctx, &models.Diagnosis{})
	assert.ErrorIs(t, err, context.Canceled)
}
