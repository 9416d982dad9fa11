package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presensia/presensia-api/internal/models"
	"github.com/presensia/presensia-api/internal/service"
	appErrors "github.com/presensia/presensia-api/pkg/errors"
	"github.com/presensia/presensia-api/pkg/export"
)

type fakeIssuer struct {
	token *models.AttendanceToken
	err   error
	lat   *float64
	lon   *float64
}

func (f *fakeIssuer) Issue(_ context.Context, classID, teacherID string, lat, lon *float64) (*models.AttendanceToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lat, f.lon = lat, lon
	token := *f.token
	token.ClassID = classID
	token.TeacherID = teacherID
	return &token, nil
}

type fakeValidator struct {
	outcome *models.ValidationOutcome
	err     error
	lastReq service.ValidateRequest
}

func (f *fakeValidator) Validate(_ context.Context, req service.ValidateRequest) (*models.ValidationOutcome, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

type fakeReports struct {
	count     int
	rows      []models.AttendanceRecord
	alerts    []models.AttendanceAlert
	dashboard *models.TeacherDashboard
	cacheHit  bool
	dataset   export.Dataset
	err       error
	lastQuery service.DashboardQuery
}

func (f *fakeReports) LiveCount(_ context.Context, _ string) (int, error) {
	return f.count, f.err
}

func (f *fakeReports) Report(_ context.Context, _ string, _ time.Time, page, pageSize int) ([]models.AttendanceRecord, *models.Pagination, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if page > 0 {
		return f.rows, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: len(f.rows)}, nil
	}
	return f.rows, nil, nil
}

func (f *fakeReports) Alerts(_ context.Context, _ string, _ *models.AlertSeverity, _, _ int) ([]models.AttendanceAlert, *models.Pagination, error) {
	return f.alerts, nil, f.err
}

func (f *fakeReports) Dashboard(_ context.Context, q service.DashboardQuery) (*models.TeacherDashboard, bool, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, false, f.err
	}
	return f.dashboard, f.cacheHit, nil
}

func (f *fakeReports) ReportDataset(_ context.Context, _ string, _ time.Time) (export.Dataset, error) {
	return f.dataset, f.err
}

type fakeQR struct {
	png []byte
	err error
}

func (f *fakeQR) PNG(_ string) ([]byte, error) {
	return f.png, f.err
}

func newTestRouter(h *AttendanceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/attendance/class/:classId/teacher/:teacherId/qr", h.IssueQR)
	r.POST("/attendance/validate", h.Validate)
	r.GET("/attendance/class/:classId/report", h.Report)
	r.GET("/attendance/class/:classId/report/export", h.ExportReport)
	r.GET("/attendance/class/:classId/live-count", h.LiveCount)
	r.GET("/attendance/class/:classId/alerts", h.Alerts)
	r.GET("/attendance/class/:classId/dashboard", h.Dashboard)
	r.GET("/attendance/class/:classId/dashboard/paged", h.DashboardPaged)
	return r
}

func doRequest(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIssueQRReturnsPNG(t *testing.T) {
	issuer := &fakeIssuer{token: &models.AttendanceToken{ID: "tok-1"}}
	h := NewAttendanceHandler(issuer, &fakeValidator{}, &fakeReports{}, &fakeQR{png: []byte("png-bytes")})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/teacher/t-1/qr?lat=28.7041&lon=77.1025", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", w.Body.String())
	require.NotNil(t, issuer.lat)
	assert.InDelta(t, 28.7041, *issuer.lat, 1e-9)
}

func TestIssueQRRejectsLoneCoordinate(t *testing.T) {
	h := NewAttendanceHandler(&fakeIssuer{token: &models.AttendanceToken{ID: "tok-1"}}, &fakeValidator{}, &fakeReports{}, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/teacher/t-1/qr?lat=28.7041", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateReturnsOutcome(t *testing.T) {
	validator := &fakeValidator{outcome: &models.ValidationOutcome{
		Status: models.ValidationRejected, Reason: models.RejectTokenExpired, Message: "QR code expired",
	}}
	h := NewAttendanceHandler(&fakeIssuer{}, validator, &fakeReports{}, &fakeQR{})
	r := newTestRouter(h)

	body := `{"token":"tok-1","student_id":"stu-1","class_id":"class-1"}`
	w := doRequest(r, http.MethodPost, "/attendance/validate", body)
	// Decided outcomes, including rejections, are HTTP 200; only faults
	// and malformed requests use error statuses.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-1", validator.lastReq.TokenID)

	var envelope struct {
		Data models.ValidationOutcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.ValidationRejected, envelope.Data.Status)
	assert.Equal(t, models.RejectTokenExpired, envelope.Data.Reason)
}

func TestValidateMalformedBody(t *testing.T) {
	h := NewAttendanceHandler(&fakeIssuer{}, &fakeValidator{}, &fakeReports{}, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodPost, "/attendance/validate", `{"token":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateFaultMapsToInternalError(t *testing.T) {
	validator := &fakeValidator{err: appErrors.Clone(appErrors.ErrInternal, "token store unavailable")}
	h := NewAttendanceHandler(&fakeIssuer{}, validator, &fakeReports{}, &fakeQR{})
	r := newTestRouter(h)

	body := `{"token":"tok-1","student_id":"stu-1","class_id":"class-1"}`
	w := doRequest(r, http.MethodPost, "/attendance/validate", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReportBadDate(t *testing.T) {
	h := NewAttendanceHandler(&fakeIssuer{}, &fakeValidator{}, &fakeReports{}, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/report?date=10-03-2025", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportPaged(t *testing.T) {
	reports := &fakeReports{rows: []models.AttendanceRecord{{StudentID: "stu-1", StudentName: "Asha"}}}
	h := NewAttendanceHandler(&fakeIssuer{}, &fakeValidator{}, reports, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/report?date=2025-03-10&page=1&size=10", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.AttendanceRecord `json:"data"`
		Pagination *models.Pagination        `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.Page)
}

func TestExportReportCSV(t *testing.T) {
	reports := &fakeReports{dataset: export.Dataset{
		Headers: []string{"Student ID", "Name"},
		Rows:    []map[string]string{{"Student ID": "stu-1", "Name": "Asha"}},
	}}
	h := NewAttendanceHandler(&fakeIssuer{}, &fakeValidator{}, reports, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/report/export?date=2025-03-10", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Asha")
}

func TestExportReportUnknownFormat(t *testing.T) {
	h := NewAttendanceHandler(&fakeIssuer{}, &fakeValidator{}, &fakeReports{}, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/report/export?date=2025-03-10&format=xlsx", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLiveCount(t *testing.T) {
	h := NewAttendanceHandler(&fakeIssuer{}, &fakeValidator{}, &fakeReports{count: 12}, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/live-count", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 12, envelope.Data["live_count"])
}

func TestAlertsInvalidSeverity(t *testing.T) {
	h := NewAttendanceHandler(&fakeIssuer{}, &fakeValidator{}, &fakeReports{}, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/alerts?severity=SEVERE", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardMetaCarriesCacheHit(t *testing.T) {
	reports := &fakeReports{dashboard: &models.TeacherDashboard{LiveCount: 3}, cacheHit: true}
	h := NewAttendanceHandler(&fakeIssuer{}, &fakeValidator{}, reports, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/dashboard?date=2025-03-10", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.TeacherDashboard `json:"data"`
		Meta map[string]interface{}  `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.LiveCount)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestDashboardPagedDefaultsPage(t *testing.T) {
	reports := &fakeReports{dashboard: &models.TeacherDashboard{}}
	h := NewAttendanceHandler(&fakeIssuer{}, &fakeValidator{}, reports, &fakeQR{})
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/attendance/class/class-1/dashboard/paged?date=2025-03-10&severity=high", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, reports.lastQuery.Page, "paged view coerces page to at least 1")
	require.NotNil(t, reports.lastQuery.Severity)
	assert.Equal(t, models.SeverityHigh, *reports.lastQuery.Severity)
}
