package dto

import (
	"io"
	"time"

	"github.com/noah-isme/roadside-assist-api/internal/models"
)

// AudioUpload is the multipart file handed from the transport layer to the pipeline.
type AudioUpload struct {
	Filename string
	MimeType string
	Size     int64
	Content  io.Reader
}

// SubmitDiagnosisRequest captures the non-file form fields of POST /diagnoses/upload.
type SubmitDiagnosisRequest struct {
	VehicleInfo       models.DiagnosisVehicle `json:"vehicle_info"`
	Symptoms          string                  `json:"symptoms" validate:"max=1000"`
	DrivingConditions string                  `json:"driving_conditions" validate:"max=300"`
	WhenOccurs        string                  `json:"when_occurs" validate:"max=300"`
}

// SubmitDiagnosisResponse is returned as soon as the record is created.
type SubmitDiagnosisResponse struct {
	DiagnosisID     string                 `json:"diagnosis_id"`
	ReferenceNumber string                 `json:"reference_number"`
	Status          models.DiagnosisStatus `json:"status"`
}

// DiagnosisFeedbackRequest captures PUT /diagnoses/:id/feedback payload.
type DiagnosisFeedbackRequest struct {
	WasAccurate *bool  `json:"was_accurate" validate:"required"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Comments    string `json:"comments" validate:"max=1000"`
}

// DiagnosisListQuery captures GET /diagnoses filters.
type DiagnosisListQuery struct {
	Status   *models.DiagnosisStatus
	Severity *models.Severity
	Page     int
	PageSize int
}

// DiagnosisResultState tells the transport layer which response shape applies.
type DiagnosisResultState string

const (
	ResultInProgress DiagnosisResultState = "in_progress"
	ResultFailed     DiagnosisResultState = "failed"
	ResultReady      DiagnosisResultState = "ready"
)

// DiagnosisResultResponse is the outcome of fetching a diagnosis result.
type DiagnosisResultResponse struct {
	State           DiagnosisResultState    `json:"-"`
	DiagnosisID     string                  `json:"diagnosis_id"`
	ReferenceNumber string                  `json:"reference_number"`
	Status          models.DiagnosisStatus  `json:"status"`
	Message         string                  `json:"message,omitempty"`
	Result          *models.DiagnosisResult `json:"result,omitempty"`
	ErrorMessage    string                  `json:"error_message,omitempty"`
	ErrorCode       string                  `json:"error_code,omitempty"`
	AudioURL        string                  `json:"audio_url,omitempty"`
	AudioURLExpires *time.Time              `json:"audio_url_expires_at,omitempty"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
}

// DiagnosisResponse adds derived fields to a diagnosis.
type DiagnosisResponse struct {
	*models.Diagnosis
	ReferenceNumber string `json:"reference_number"`
}

// NewDiagnosisResponse decorates a diagnosis with its derived fields.
func NewDiagnosisResponse(d *models.Diagnosis) DiagnosisResponse {
	return DiagnosisResponse{Diagnosis: d, ReferenceNumber: d.ReferenceNumber()}
}
