package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/middleware"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
)

type analyticsServiceMock struct {
	query       dto.AnalyticsRangeQuery
	garageQuery dto.GarageStatsQuery
	hit         bool
	invalidated bool
	err         error
}

func (m *analyticsServiceMock) Dashboard(ctx context.Context, query dto.AnalyticsRangeQuery) (*models.Dashboard, bool, error) {
	m.query = query
	return &models.Dashboard{}, m.hit, m.err
}

func (m *analyticsServiceMock) DiagnosisStats(ctx context.Context, query dto.AnalyticsRangeQuery) (*models.DiagnosisStats, bool, error) {
	m.query = query
	return &models.DiagnosisStats{}, m.hit, m.err
}

func (m *analyticsServiceMock) GarageStats(ctx context.Context, principal models.Principal, query dto.GarageStatsQuery) (*models.GarageStats, error) {
	m.garageQuery = query
	return &models.GarageStats{}, m.err
}

func (m *analyticsServiceMock) Invalidate(ctx context.Context) { m.invalidated = true }

func (m *analyticsServiceMock) SystemMetrics() models.AnalyticsSystemMetrics {
	return models.AnalyticsSystemMetrics{RequestsTotal: 7}
}

type exportServiceMock struct {
	format dto.ExportFormat
	err    error
}

func (m *exportServiceMock) ExportDashboard(ctx context.Context, query dto.AnalyticsRangeQuery, format dto.ExportFormat) (*dto.ExportFile, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ExportFile{Filename: "dashboard-20250301-20250331.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.3")}, nil
}

func TestAnalyticsHandlerDashboardParsesRange(t *testing.T) {
	svc := &analyticsServiceMock{hit: true}
	h := NewAnalyticsHandler(svc, nil)
	req, _ := http.NewRequest(http.MethodGet, "/analytics/dashboard?from=2025-03-01&to=2025-03-31&top=3", nil)
	c, w := newTestContext(req, adminClaims)
	middleware.WithResponseMeta()(c)

	h.Dashboard(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.query.From)
	require.NotNil(t, svc.query.To)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *svc.query.From)
	assert.Equal(t, time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC), *svc.query.To)
	assert.Equal(t, 3, svc.query.TopN)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
	assert.Contains(t, w.Body.String(), "processing_time_ms")
}

func TestAnalyticsHandlerRejectsBadDates(t *testing.T) {
	h := NewAnalyticsHandler(&analyticsServiceMock{}, nil)
	req, _ := http.NewRequest(http.MethodGet, "/analytics/dashboard?from=yesterday", nil)
	c, w := newTestContext(req, adminClaims)

	h.Dashboard(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid from parameter")
}

func TestAnalyticsHandlerGarageStatsUsesPathID(t *testing.T) {
	svc := &analyticsServiceMock{}
	h := NewAnalyticsHandler(svc, nil)
	req, _ := http.NewRequest(http.MethodGet, "/garages/g-1/stats", nil)
	c, w := newTestContext(req, &models.JWTClaims{UserID: "owner-1", Role: models.RoleGarageOwner})
	c.Params = gin.Params{{Key: "id", Value: "g-1"}}

	h.GarageStats(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "g-1", svc.garageQuery.GarageID)
}

func TestAnalyticsHandlerExport(t *testing.T) {
	exports := &exportServiceMock{}
	h := NewAnalyticsHandler(&analyticsServiceMock{}, exports)
	req, _ := http.NewRequest(http.MethodGet, "/analytics/dashboard/export?format=PDF", nil)
	c, w := newTestContext(req, adminClaims)

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ExportPDF, exports.format)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="dashboard-20250301-20250331.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}

func TestAnalyticsHandlerExportDefaultsToCSVAndMapsErrors(t *testing.T) {
	exports := &exportServiceMock{err: appErrors.Internal(errors.New("font missing"), "failed to render export")}
	h := NewAnalyticsHandler(&analyticsServiceMock{}, exports)
	req, _ := http.NewRequest(http.MethodGet, "/analytics/dashboard/export", nil)
	c, w := newTestContext(req, adminClaims)

	h.Export(c)
	assert.Equal(t, dto.ExportCSV, exports.format)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAnalyticsHandlerInvalidateAndSystem(t *testing.T) {
	svc := &analyticsServiceMock{}
	h := NewAnalyticsHandler(svc, nil)

	req, _ := http.NewRequest(http.MethodDelete, "/analytics/cache", nil)
	c, w := newTestContext(req, adminClaims)
	h.InvalidateCache(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, svc.invalidated)

	req, _ = http.NewRequest(http.MethodGet, "/analytics/system", nil)
	c, w = newTestContext(req, adminClaims)
	h.System(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requests_total":7`)
}
