package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadside-assist-api/internal/dto"
	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
)

type emergencyServiceMock struct {
	principal models.Principal
	created   dto.CreateEmergencyRequest
	listQuery dto.EmergencyListQuery
	statusReq dto.UpdateEmergencyStatusRequest
	resp      *models.EmergencyRequest
	err       error
}

func (m *emergencyServiceMock) Create(ctx context.Context, principal models.Principal, req dto.CreateEmergencyRequest) (*models.EmergencyRequest, error) {
	m.principal, m.created = principal, req
	return m.resp, m.err
}

func (m *emergencyServiceMock) Get(ctx context.Context, principal models.Principal, id string) (*models.EmergencyRequest, error) {
	m.principal = principal
	return m.resp, m.err
}

func (m *emergencyServiceMock) List(ctx context.Context, principal models.Principal, query dto.EmergencyListQuery) ([]models.EmergencyRequest, *models.Pagination, error) {
	m.principal, m.listQuery = principal, query
	if m.err != nil {
		return nil, nil, m.err
	}
	return []models.EmergencyRequest{*m.resp}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *emergencyServiceMock) UpdateStatus(ctx context.Context, principal models.Principal, id string, req dto.UpdateEmergencyStatusRequest) (*models.EmergencyRequest, error) {
	m.statusReq = req
	return m.resp, m.err
}

func (m *emergencyServiceMock) Cancel(ctx context.Context, principal models.Principal, id string, req dto.CancelEmergencyRequest) (*models.EmergencyRequest, error) {
	return m.resp, m.err
}

func (m *emergencyServiceMock) RecordCost(ctx context.Context, principal models.Principal, id string, req dto.RecordCostRequest) (*models.EmergencyRequest, error) {
	return m.resp, m.err
}

func sampleEmergency() *models.EmergencyRequest {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	arrived := created.Add(25 * time.Minute)
	return &models.EmergencyRequest{
		ID:            "0195a1b2-0000-7000-8000-00000000abcd",
		CustomerID:    "cust-alice",
		Type:          models.EmergencyFlatTire,
		Status:        models.EmergencyInProgress,
		Priority:      models.PriorityMedium,
		ActualArrival: &arrived,
		CreatedAt:     created,
	}
}

func TestEmergencyHandlerCreate(t *testing.T) {
	svc := &emergencyServiceMock{resp: sampleEmergency()}
	h := NewEmergencyHandler(svc)

	body := `{"type":"flat_tire","description":"rear tire","location":{"latitude":6.9,"longitude":79.8,"address":"Galle Rd"},"contact_number":"+94770000000"}`
	req, _ := http.NewRequest(http.MethodPost, "/emergencies", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c, w := newTestContext(req, customerClaims)

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.Principal{ID: "cust-alice", Role: models.RoleCustomer}, svc.principal)
	assert.Equal(t, models.EmergencyFlatTire, svc.created.Type)
	require.NotNil(t, svc.created.Location.Latitude)
	assert.InDelta(t, 6.9, *svc.created.Location.Latitude, 1e-9)

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			ID                  string `json:"id"`
			ReferenceNumber     string `json:"reference_number"`
			ResponseTimeMinutes int    `json:"response_time_minutes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	assert.Equal(t, "0195a1b2-0000-7000-8000-00000000abcd", payload.Data.ID)
	assert.Equal(t, "EMG-2025-00ABCD", payload.Data.ReferenceNumber)
	assert.Equal(t, 25, payload.Data.ResponseTimeMinutes)
}

func TestEmergencyHandlerCreateInvalidBody(t *testing.T) {
	h := NewEmergencyHandler(&emergencyServiceMock{})
	req, _ := http.NewRequest(http.MethodPost, "/emergencies", bytes.NewBufferString(`{"type":`))
	req.Header.Set("Content-Type", "application/json")
	c, w := newTestContext(req, customerClaims)

	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestEmergencyHandlerListParsesFilters(t *testing.T) {
	svc := &emergencyServiceMock{resp: sampleEmergency()}
	h := NewEmergencyHandler(svc)
	req, _ := http.NewRequest(http.MethodGet, "/emergencies?status=pending&priority=high&page=2&page_size=5", nil)
	c, w := newTestContext(req, adminClaims)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.listQuery.Status)
	assert.Equal(t, models.EmergencyPending, *svc.listQuery.Status)
	require.NotNil(t, svc.listQuery.Priority)
	assert.Equal(t, models.PriorityHigh, *svc.listQuery.Priority)
	assert.Nil(t, svc.listQuery.Type)
	assert.Equal(t, 2, svc.listQuery.Page)
	assert.Equal(t, 5, svc.listQuery.PageSize)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}

func TestEmergencyHandlerListRejectsBadPage(t *testing.T) {
	h := NewEmergencyHandler(&emergencyServiceMock{})
	req, _ := http.NewRequest(http.MethodGet, "/emergencies?page=two", nil)
	c, w := newTestContext(req, adminClaims)

	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmergencyHandlerMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", appErrors.Clone(appErrors.ErrNotFound, "emergency not found"), http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", appErrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"transition", appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move"), http.StatusBadRequest, "INVALID_TRANSITION"},
		{"internal", appErrors.Internal(assert.AnError, "boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewEmergencyHandler(&emergencyServiceMock{err: tc.err})
			req, _ := http.NewRequest(http.MethodPatch, "/emergencies/e-1/status", bytes.NewBufferString(`{"status":"completed"}`))
			req.Header.Set("Content-Type", "application/json")
			c, w := newTestContext(req, adminClaims)
			c.Params = gin.Params{{Key: "id", Value: "e-1"}}

			h.UpdateStatus(c)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestEmergencyHandlerUpdateStatusPassesPayload(t *testing.T) {
	svc := &emergencyServiceMock{resp: sampleEmergency()}
	h := NewEmergencyHandler(svc)
	req, _ := http.NewRequest(http.MethodPatch, "/emergencies/e-1/status",
		bytes.NewBufferString(`{"status":"dispatched","dispatch_notes":"truck 4","estimated_arrival":"2025-03-01T10:30:00Z"}`))
	req.Header.Set("Content-Type", "application/json")
	c, w := newTestContext(req, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}

	h.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EmergencyDispatched, svc.statusReq.Status)
	require.NotNil(t, svc.statusReq.DispatchNotes)
	assert.Equal(t, "truck 4", *svc.statusReq.DispatchNotes)
	require.NotNil(t, svc.statusReq.EstimatedArrival)
}
