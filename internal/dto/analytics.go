package dto

import "time"

// AnalyticsRangeQuery captures the date range and ranking size of analytics endpoints.
type AnalyticsRangeQuery struct {
	From *time.Time
	To   *time.Time
	TopN int
}

// ExportFormat enumerates dashboard export formats.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
