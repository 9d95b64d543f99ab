package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	"github.com/noah-isme/roadside-assist-api/internal/service"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
	"github.com/noah-isme/roadside-assist-api/pkg/response"
)

// AudioFormField is the multipart field carrying the recording.
const AudioFormField = "audio"

type diagnosisService interface {
	Submit(ctx context.Context, principal models.Principal, upload dto.AudioUpload, req dto.SubmitDiagnosisRequest) (*dto.SubmitDiagnosisResponse, error)
	Get(ctx context.Context, principal models.Principal, id string) (*models.Diagnosis, error)
	List(ctx context.Context, principal models.Principal, query dto.DiagnosisListQuery) ([]models.Diagnosis, *models.Pagination, error)
	FetchResult(ctx context.Context, principal models.Principal, id string) (*dto.DiagnosisResultResponse, error)
	AddFeedback(ctx context.Context, principal models.Principal, id string, req dto.DiagnosisFeedbackRequest) (*models.Diagnosis, error)
	Delete(ctx context.Context, principal models.Principal, id string) error
	OpenAudio(ctx context.Context, token string) (*service.AudioDownload, error)
}

// DiagnosisHandler exposes the audio diagnosis pipeline.
type DiagnosisHandler struct {
	service diagnosisService
}

// NewDiagnosisHandler builds a new handler.
func NewDiagnosisHandler(service diagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{service: service}
}

// Upload godoc
// @Summary Submit an engine recording for analysis
// @Tags Diagnoses
// @Accept multipart/form-data
// @Produce json
// @Param audio formData file true "Engine recording"
// @Param make formData string false "Vehicle make"
// @Param model formData string false "Vehicle model"
// @Param year formData int false "Vehicle year"
// @Param mileage formData int false "Mileage"
// @Param fuel_type formData string false "Fuel type"
// @Param symptoms formData string false "Symptoms"
// @Param driving_conditions formData string false "Driving conditions"
// @Param when_occurs formData string false "When the noise occurs"
// @Success 201 {object} response.Envelope
// @Router /diagnoses/upload [post]
func (h *DiagnosisHandler) Upload(c *gin.Context) {
	header, err := c.FormFile(AudioFormField)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "audio file is required"))
		return
	}
	req, err := submitForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read upload"))
		return
	}
	defer file.Close()

	upload := dto.AudioUpload{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  file,
	}
	result, err := h.service.Submit(c.Request.Context(), principalFromContext(c), upload, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List diagnoses
// @Tags Diagnoses
// @Produce json
// @Param status query string false "Status filter"
// @Param severity query string false "Severity filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /diagnoses [get]
func (h *DiagnosisHandler) List(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		response.Error(c, err)
		return
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.DiagnosisListQuery{
		Status:   queryEnum[models.DiagnosisStatus](c, "status"),
		Severity: queryEnum[models.Severity](c, "severity"),
		Page:     page,
		PageSize: size,
	}
	items, pagination, err := h.service.List(c.Request.Context(), principalFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.DiagnosisResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewDiagnosisResponse(&items[i]))
	}
	response.JSON(c, http.StatusOK, out, pagination)
}

// Get godoc
// @Summary Get a diagnosis
// @Tags Diagnoses
// @Produce json
// @Param id path string true "Diagnosis ID"
// @Success 200 {object} response.Envelope
// @Router /diagnoses/{id} [get]
func (h *DiagnosisHandler) Get(c *gin.Context) {
	diagnosis, err := h.service.Get(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewDiagnosisResponse(diagnosis), nil)
}

// Result godoc
// @Summary Fetch the analysis result
// @Description Returns 202 while the analysis runs and 500 with the recorded error when it failed.
// @Tags Diagnoses
// @Produce json
// @Param id path string true "Diagnosis ID"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /diagnoses/{id}/result [get]
func (h *DiagnosisHandler) Result(c *gin.Context) {
	result, err := h.service.FetchResult(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	switch result.State {
	case dto.ResultInProgress:
		response.Accepted(c, result)
	case dto.ResultFailed:
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusInternalServerError, response.Envelope{
			Data:    result,
			Message: result.ErrorMessage,
			Error:   &response.ErrorBody{Code: result.ErrorCode},
		})
	default:
		response.JSON(c, http.StatusOK, result, nil)
	}
}

// Feedback godoc
// @Summary Rate a completed diagnosis
// @Tags Diagnoses
// @Accept json
// @Produce json
// @Param id path string true "Diagnosis ID"
// @Param payload body dto.DiagnosisFeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Router /diagnoses/{id}/feedback [put]
func (h *DiagnosisHandler) Feedback(c *gin.Context) {
	var req dto.DiagnosisFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}
	diagnosis, err := h.service.AddFeedback(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewDiagnosisResponse(diagnosis), nil)
}

// Delete godoc
// @Summary Delete a diagnosis and its recording
// @Tags Diagnoses
// @Param id path string true "Diagnosis ID"
// @Success 204
// @Router /diagnoses/{id} [delete]
func (h *DiagnosisHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), principalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Audio godoc
// @Summary Download a recording through a signed link
// @Tags Diagnoses
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /diagnoses/audio/{token} [get]
func (h *DiagnosisHandler) Audio(c *gin.Context) {
	download, err := h.service.OpenAudio(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", download.Filename),
		"Cache-Control":       "private, max-age=0",
	}
	c.DataFromReader(http.StatusOK, download.Size, download.MimeType, download.File, headers)
}

func submitForm(c *gin.Context) (dto.SubmitDiagnosisRequest, error) {
	req := dto.SubmitDiagnosisRequest{
		VehicleInfo: models.DiagnosisVehicle{
			Make:     strings.TrimSpace(c.PostForm("make")),
			Model:    strings.TrimSpace(c.PostForm("model")),
			FuelType: models.FuelType(strings.TrimSpace(c.PostForm("fuel_type"))),
		},
		Symptoms:          strings.TrimSpace(c.PostForm("symptoms")),
		DrivingConditions: strings.TrimSpace(c.PostForm("driving_conditions")),
		WhenOccurs:        strings.TrimSpace(c.PostForm("when_occurs")),
	}
	for field, target := range map[string]*int{"year": &req.VehicleInfo.Year, "mileage": &req.VehicleInfo.Mileage} {
		raw := strings.TrimSpace(c.PostForm(field))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return req, appErrors.Clone(appErrors.ErrValidation, "invalid "+field+" field")
		}
		*target = value
	}
	return req, nil
}
