package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/export"
)

type dashboardSource interface {
	Dashboard(ctx context.Context, query dto.AnalyticsRangeQuery) (*models.Dashboard, bool, error)
}

type reportRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ExportService renders the analytics dashboard as a downloadable document.
type ExportService struct {
	dashboards dashboardSource
	csv        reportRenderer
	pdf        reportRenderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export ones.
func NewExportService(dashboards dashboardSource, csv, pdf reportRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{dashboards: dashboards, csv: csv, pdf: pdf, logger: logger}
}

// ExportDashboard renders the dashboard for the range in the requested format.
func (s *ExportService) ExportDashboard(ctx context.Context, query dto.AnalyticsRangeQuery, format dto.ExportFormat) (*dto.ExportFile, error) {
	var (
		renderer    reportRenderer
		contentType string
	)
	switch format {
	case dto.ExportCSV, "":
		format = dto.ExportCSV
		renderer, contentType = s.csv, "text/csv"
	case dto.ExportPDF:
		renderer, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	dashboard, _, err := s.dashboards.Dashboard(ctx, query)
	if err != nil {
		return nil, err
	}
	content, err := renderer.Render(DashboardReport(dashboard))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render dashboard export")
	}
	filename := fmt.Sprintf("dashboard-%s-%s.%s", dashboard.From.Format("20060102"), dashboard.To.Format("20060102"), format)
	s.logger.Info("dashboard exported", zap.String("format", string(format)), zap.Int("bytes", len(content)))
	return &dto.ExportFile{Filename: filename, ContentType: contentType, Content: content}, nil
}

// DashboardReport flattens a dashboard into printable sections.
func DashboardReport(d *models.Dashboard) export.Report {
	report := export.Report{
		Title: fmt.Sprintf("Roadside assistance dashboard %s to %s", d.From.Format("2006-01-02"), d.To.Format("2006-01-02")),
	}
	report.Sections = append(report.Sections,
		export.Section{
			Title:   "Summary",
			Headers: []string{"Metric", "Value"},
			Rows: [][]string{
				{"Completed booking revenue", d.Revenue.StringFixed(2)},
				{"Average diagnosis confidence", strconv.FormatFloat(d.AverageConfidence, 'f', 1, 64)},
				{"Generated at", d.GeneratedAt.Format("2006-01-02 15:04:05")},
			},
		},
		countSection("Emergencies by status", "Status", statusRows(d.EmergencyByStatus, models.AllEmergencyStatuses)),
		countSection("Diagnoses by status", "Status", statusRows(d.DiagnosisByStatus, models.AllDiagnosisStatuses)),
		countSection("Bookings by status", "Status", statusRows(d.BookingByStatus, models.AllBookingStatuses)),
		countSection("Users by role", "Role", statusRows(d.UsersByRole, models.AllUserRoles)),
	)

	responseRows := make([][]string, 0, len(models.AllEmergencyTypes))
	for _, t := range models.AllEmergencyTypes {
		responseRows = append(responseRows, []string{string(t), strconv.FormatFloat(d.ResponseTimeByType[t], 'f', 1, 64)})
	}
	report.Sections = append(report.Sections, export.Section{
		Title:   "Average response time",
		Headers: []string{"Type", "Minutes"},
		Rows:    responseRows,
	})

	garageRows := make([][]string, 0, len(d.TopGarages))
	for i, g := range d.TopGarages {
		garageRows = append(garageRows, []string{strconv.Itoa(i + 1), g.Name, strconv.Itoa(g.CompletedBookings), g.Revenue.StringFixed(2)})
	}
	report.Sections = append(report.Sections, export.Section{
		Title:   "Top garages",
		Headers: []string{"Rank", "Garage", "Completed bookings", "Revenue"},
		Rows:    garageRows,
	})
	return report
}

func countSection(title, keyHeader string, rows [][]string) export.Section {
	return export.Section{Title: title, Headers: []string{keyHeader, "Count"}, Rows: rows}
}

// statusRows lists known keys in declaration order followed by any unexpected keys sorted.
func statusRows[K ~string](counts map[K]int, known []K) [][]string {
	rows := make([][]string, 0, len(counts))
	seen := make(map[K]bool, len(known))
	for _, key := range known {
		seen[key] = true
		rows = append(rows, []string{string(key), strconv.Itoa(counts[key])})
	}
	var extra []string
	for key := range counts {
		if !seen[key] {
			extra = append(extra, string(key))
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		rows = append(rows, []string{key, strconv.Itoa(counts[K(key)])})
	}
	return rows
}
