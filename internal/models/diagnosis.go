package models

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// DiagnosisStatus is the analysis lifecycle state.
type DiagnosisStatus string

const (
	DiagnosisPending    DiagnosisStatus = "pending"
	DiagnosisProcessing DiagnosisStatus = "processing"
	DiagnosisCompleted  DiagnosisStatus = "completed"
	DiagnosisFailed     DiagnosisStatus = "failed"
)

// AllDiagnosisStatuses lists every status in lifecycle order.
var AllDiagnosisStatuses = []DiagnosisStatus{DiagnosisPending, DiagnosisProcessing, DiagnosisCompleted, DiagnosisFailed}

// Valid reports whether s is a known status.
func (s DiagnosisStatus) Valid() bool {
	for _, known := range AllDiagnosisStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether analysis has finished.
func (s DiagnosisStatus) IsTerminal() bool {
	return s == DiagnosisCompleted || s == DiagnosisFailed
}

// Severity grades a detected issue.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists every severity from least to most severe.
var AllSeverities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	for _, known := range AllSeverities {
		if s == known {
			return true
		}
	}
	return false
}

// Urgency tells the customer how soon to act.
type Urgency string

const (
	UrgencyImmediate   Urgency = "immediate"
	UrgencyWithinWeek  Urgency = "within_week"
	UrgencyWithinMonth Urgency = "within_month"
	UrgencyRoutine     Urgency = "routine"
)

// FuelType of the diagnosed vehicle.
type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
)

// Valid reports whether f is a known fuel type.
func (f FuelType) Valid() bool {
	switch f {
	case FuelPetrol, FuelDiesel, FuelHybrid, FuelElectric:
		return true
	}
	return false
}

// AudioFile describes the stored recording.
type AudioFile struct {
	Filename     string `db:"audio_filename" json:"filename"`
	OriginalName string `db:"audio_original_name" json:"original_name"`
	MimeType     string `db:"audio_mime_type" json:"mime_type"`
	Size         int64  `db:"audio_size" json:"size"`
	Path         string `db:"audio_path" json:"-"`
}

// DiagnosisVehicle describes the vehicle a recording was taken from.
type DiagnosisVehicle struct {
	Make     string   `json:"make,omitempty"`
	Model    string   `json:"model,omitempty"`
	Year     int      `json:"year,omitempty"`
	Mileage  int      `json:"mileage,omitempty"`
	FuelType FuelType `json:"fuel_type,omitempty"`
}

// Value marshals vehicle details to JSON for persistence.
func (v DiagnosisVehicle) Value() (driver.Value, error) {
	return jsonValue(v, "diagnosis vehicle")
}

// Scan unmarshals the JSONB column.
func (v *DiagnosisVehicle) Scan(value interface{}) error {
	*v = DiagnosisVehicle{}
	_, err := scanJSON(value, v, "diagnosis vehicle")
	return err
}

// CostRange is an estimated repair cost band.
type CostRange struct {
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
	Currency string          `json:"currency"`
}

// DiagnosisResult is written once when analysis completes.
type DiagnosisResult struct {
	Confidence       int       `json:"confidence"`
	Issue            string    `json:"issue"`
	Severity         Severity  `json:"severity"`
	Description      string    `json:"description"`
	Recommendations  []string  `json:"recommendations"`
	EstimatedCost    CostRange `json:"estimated_cost"`
	Urgency          Urgency   `json:"urgency"`
	ModelVersion     string    `json:"model_version"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
}

// DiagnosisFailure is written once when analysis fails.
type DiagnosisFailure struct {
	Message string `json:"error_message"`
	Code    string `json:"error_code"`
}

// CustomerFeedback is the owner's rating of a completed analysis.
type CustomerFeedback struct {
	WasAccurate bool      `json:"was_accurate"`
	Rating      int       `json:"rating"`
	Comments    string    `json:"comments,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Value marshals feedback to JSON for persistence.
func (f CustomerFeedback) Value() (driver.Value, error) {
	return jsonValue(f, "customer feedback")
}

// Diagnosis is an audio based vehicle issue analysis. At most one of Result and Failure is set,
// and exactly one once the status is terminal.
type Diagnosis struct {
	ID                string            `json:"id"`
	CustomerID        string            `json:"customer_id"`
	Audio             AudioFile         `json:"audio"`
	VehicleInfo       DiagnosisVehicle  `json:"vehicle_info"`
	Symptoms          string            `json:"symptoms,omitempty"`
	DrivingConditions string            `json:"driving_conditions,omitempty"`
	WhenOccurs        string            `json:"when_occurs,omitempty"`
	Status            DiagnosisStatus   `json:"analysis_status"`
	Result            *DiagnosisResult  `json:"result,omitempty"`
	Failure           *DiagnosisFailure `json:"failure,omitempty"`
	Feedback          *CustomerFeedback `json:"customer_feedback,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// ReferenceNumber renders the customer facing identifier, e.g. DGN-2025-1A2B3C.
func (d Diagnosis) ReferenceNumber() string {
	return referenceNumber("DGN", d.ID, d.CreatedAt)
}

// DiagnosisFilter captures filtering criteria for listing diagnoses.
type DiagnosisFilter struct {
	CustomerID string
	Status     *DiagnosisStatus
	Severity   *Severity
	Page       int
	PageSize   int
}

// DiagnosisStats summarises diagnoses created within a range.
type DiagnosisStats struct {
	From               time.Time        `json:"from"`
	To                 time.Time        `json:"to"`
	TotalDiagnoses     int              `json:"total_diagnoses"`
	CompletedDiagnoses int              `json:"completed_diagnoses"`
	AverageConfidence  float64          `json:"average_confidence"`
	SeverityBreakdown  map[Severity]int `json:"severity_breakdown"`
}

// Scan unmarshals the JSONB column.
func (f *CustomerFeedback) Scan(value interface{}) error {
	*f = CustomerFeedback{}
	_, err := scanJSON(value, f, "customer feedback")
	return err
}
