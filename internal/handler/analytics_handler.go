package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/middleware"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/response"
)

type analyticsService interface {
	Dashboard(ctx context.Context, query dto.AnalyticsRangeQuery) (*models.Dashboard, bool, error)
	DiagnosisStats(ctx context.Context, query dto.AnalyticsRangeQuery) (*models.DiagnosisStats, bool, error)
	GarageStats(ctx context.Context, principal models.Principal, query dto.GarageStatsQuery) (*models.GarageStats, error)
	Invalidate(ctx context.Context)
	SystemMetrics() models.AnalyticsSystemMetrics
}

type exportService interface {
	ExportDashboard(ctx context.Context, query dto.AnalyticsRangeQuery, format dto.ExportFormat) (*dto.ExportFile, error)
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
	exports   exportService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService, exports exportService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, exports: exports}
}

// Dashboard godoc
// @Summary Platform dashboard for a date range
// @Tags Analytics
// @Produce json
// @Param from query string false "Range start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Range end (RFC3339 or YYYY-MM-DD)"
// @Param top query int false "Number of top garages"
// @Success 200 {object} response.Envelope
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	query, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	dashboard, cacheHit, err := h.analytics.Dashboard(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, dashboard, nil, middleware.ResponseMeta(c))
}

// DiagnosisStats godoc
// @Summary Diagnosis statistics for a date range
// @Tags Analytics
// @Produce json
// @Param from query string false "Range start"
// @Param to query string false "Range end"
// @Success 200 {object} response.Envelope
// @Router /diagnoses/stats [get]
func (h *AnalyticsHandler) DiagnosisStats(c *gin.Context) {
	query, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, cacheHit, err := h.analytics.DiagnosisStats(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ResponseMeta(c))
}

// GarageStats godoc
// @Summary Booking statistics for one garage
// @Tags Analytics
// @Produce json
// @Param id path string true "Garage ID"
// @Param from query string false "Range start"
// @Param to query string false "Range end"
// @Success 200 {object} response.Envelope
// @Router /garages/{id}/stats [get]
func (h *AnalyticsHandler) GarageStats(c *gin.Context) {
	query, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.analytics.GarageStats(c.Request.Context(), principalFromContext(c), dto.GarageStatsQuery{GarageID: c.Param("id"), Range: query})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Export the dashboard as CSV or PDF
// @Tags Analytics
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param from query string false "Range start"
// @Param to query string false "Range end"
// @Success 200 {file} binary
// @Router /analytics/dashboard/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	query, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := dto.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ExportCSV))))
	file, err := h.exports.ExportDashboard(c.Request.Context(), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// InvalidateCache godoc
// @Summary Drop cached analytics
// @Tags Analytics
// @Success 204
// @Router /analytics/cache [delete]
func (h *AnalyticsHandler) InvalidateCache(c *gin.Context) {
	h.analytics.Invalidate(c.Request.Context())
	response.NoContent(c)
}

// System godoc
// @Summary Process level instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	metrics := h.analytics.SystemMetrics()
	middleware.SetCacheHit(c, false)
	response.JSON(c, http.StatusOK, metrics, nil, middleware.ResponseMeta(c))
}

func parseRange(c *gin.Context) (dto.AnalyticsRangeQuery, error) {
	var query dto.AnalyticsRangeQuery
	var err error
	if query.From, err = queryTime(c, "from", false); err != nil {
		return query, err
	}
	if query.To, err = queryTime(c, "to", true); err != nil {
		return query, err
	}
	if query.TopN, err = queryInt(c, "top"); err != nil {
		return query, err
	}
	return query, nil
}
