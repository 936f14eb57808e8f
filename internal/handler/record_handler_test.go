package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitops/feedback-api/internal/dto"
	"github.com/transitops/feedback-api/internal/middleware"
	"github.com/transitops/feedback-api/internal/models"
	appErrors "github.com/transitops/feedback-api/pkg/errors"
	"github.com/transitops/feedback-api/pkg/response"
)

type recordServiceMock struct {
	updateResp *models.RecordDetail
	updateErr  error
	getResp    *models.RecordDetail
	getErr     error
	listResp   []models.RecordDetail
	listErr    error

	lastID    int64
	lastReq   dto.UpdateRecordRequest
	lastActor *models.JWTClaims
	lastQuery dto.RecordQuery
}

func (m *recordServiceMock) Update(ctx context.Context, id int64, req dto.UpdateRecordRequest, actor *models.JWTClaims) (*models.RecordDetail, error) {
	m.lastID = id
	m.lastReq = req
	m.lastActor = actor
	return m.updateResp, m.updateErr
}

func (m *recordServiceMock) Get(ctx context.Context, id int64) (*models.RecordDetail, error) {
	m.lastID = id
	return m.getResp, m.getErr
}

func (m *recordServiceMock) List(ctx context.Context, query dto.RecordQuery) ([]models.RecordDetail, *models.Pagination, error) {
	m.lastQuery = query
	return m.listResp, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(m.listResp)}, m.listErr
}

func patchContext(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPatch, "/records/42", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Set(middleware.ContextStaffKey, &models.JWTClaims{StaffID: 7, Role: models.RoleAgent})
	return c, w
}

func TestRecordHandlerUpdate(t *testing.T) {
	mockSvc := &recordServiceMock{
		updateResp: &models.RecordDetail{Record: models.Record{ID: 42, Kind: models.KindComplaint, Status: models.StatusInProgress}},
	}
	handler := NewRecordHandler(mockSvc)

	c, w := patchContext(t, `{"assignSelf":true,"status":"IN_PROGRESS"}`)
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(42), mockSvc.lastID)
	assert.True(t, mockSvc.lastReq.AssignSelf)
	require.NotNil(t, mockSvc.lastReq.Status)
	assert.Equal(t, "IN_PROGRESS", *mockSvc.lastReq.Status)
	require.NotNil(t, mockSvc.lastActor)
	assert.Equal(t, int64(7), mockSvc.lastActor.StaffID)
}

func TestRecordHandlerUpdateRelockMarkerInBody(t *testing.T) {
	mockSvc := &recordServiceMock{
		updateResp: &models.RecordDetail{
			Record:         models.Record{ID: 42, Kind: models.KindComplaint, Status: models.StatusOpen},
			ActionRequired: models.ActionRelockUI,
		},
	}
	handler := NewRecordHandler(mockSvc)

	c, w := patchContext(t, `{"status":"OPEN"}`)
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data struct {
			ActionRequired string `json:"actionRequired"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.ActionRelockUI, envelope.Data.ActionRequired)
}

func TestRecordHandlerUpdateInvalidID(t *testing.T) {
	handler := NewRecordHandler(&recordServiceMock{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/records/abc", bytes.NewBufferString(`{}`))
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Update(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordHandlerUpdateInvalidBody(t *testing.T) {
	handler := NewRecordHandler(&recordServiceMock{})
	c, w := patchContext(t, `{"assignSelf":`)
	handler.Update(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordHandlerUpdateConflictStatus(t *testing.T) {
	mockSvc := &recordServiceMock{updateErr: appErrors.ErrAlreadyAssigned}
	handler := NewRecordHandler(mockSvc)

	c, w := patchContext(t, `{"assignSelf":true}`)
	handler.Update(c)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrAlreadyAssigned.Code, envelope.Error.Code)
}

func TestRecordHandlerGetNotFound(t *testing.T) {
	mockSvc := &recordServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewRecordHandler(mockSvc)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/records/99", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "99"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordHandlerListBindsQuery(t *testing.T) {
	mockSvc := &recordServiceMock{listResp: []models.RecordDetail{{Record: models.Record{ID: 1}}}}
	handler := NewRecordHandler(mockSvc)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/records?kind=COMPLAINT&status=OPEN,IN_PROGRESS&page=2", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "COMPLAINT", mockSvc.lastQuery.Kind)
	assert.Equal(t, "OPEN,IN_PROGRESS", mockSvc.lastQuery.Status)
	assert.Equal(t, 2, mockSvc.lastQuery.Page)
}
