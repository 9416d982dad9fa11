package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/presensia/presensia-api/internal/models"
	"github.com/presensia/presensia-api/internal/service"
	appErrors "github.com/presensia/presensia-api/pkg/errors"
	"github.com/presensia/presensia-api/pkg/export"
	"github.com/presensia/presensia-api/pkg/response"
)

type tokenIssuer interface {
	Issue(ctx context.Context, classID, teacherID string, lat, lon *float64) (*models.AttendanceToken, error)
}

type checkInValidator interface {
	Validate(ctx context.Context, req service.ValidateRequest) (*models.ValidationOutcome, error)
}

type reportProvider interface {
	LiveCount(ctx context.Context, classID string) (int, error)
	Report(ctx context.Context, classID string, date time.Time, page, pageSize int) ([]models.AttendanceRecord, *models.Pagination, error)
	Alerts(ctx context.Context, classID string, severity *models.AlertSeverity, page, pageSize int) ([]models.AttendanceAlert, *models.Pagination, error)
	Dashboard(ctx context.Context, q service.DashboardQuery) (*models.TeacherDashboard, bool, error)
	ReportDataset(ctx context.Context, classID string, date time.Time) (export.Dataset, error)
}

type qrRenderer interface {
	PNG(payload string) ([]byte, error)
}

// AttendanceHandler wires the attendance services to HTTP endpoints.
type AttendanceHandler struct {
	tokens    tokenIssuer
	validator checkInValidator
	reports   reportProvider
	qr        qrRenderer
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(tokens tokenIssuer, validator checkInValidator, reports reportProvider, qr qrRenderer) *AttendanceHandler {
	return &AttendanceHandler{
		tokens:    tokens,
		validator: validator,
		reports:   reports,
		qr:        qr,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// IssueQR godoc
// @Summary Issue an attendance token and return it as a QR PNG
// @Tags Attendance
// @Produce png
// @Param classId path string true "Class ID"
// @Param teacherId path string true "Teacher ID"
// @Param lat query number false "Teacher latitude"
// @Param lon query number false "Teacher longitude"
// @Success 200 {file} byte
// @Router /attendance/class/{classId}/teacher/{teacherId}/qr [get]
func (h *AttendanceHandler) IssueQR(c *gin.Context) {
	classID := c.Param("classId")
	teacherID := c.Param("teacherId")

	lat, err := optionalFloat(c, "lat")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lat must be a number"))
		return
	}
	lon, err := optionalFloat(c, "lon")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lon must be a number"))
		return
	}
	if (lat == nil) != (lon == nil) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lat and lon must be supplied together"))
		return
	}

	token, err := h.tokens.Issue(c.Request.Context(), classID, teacherID, lat, lon)
	if err != nil {
		response.Error(c, err)
		return
	}

	img, err := h.qr.PNG(token.ID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render QR"))
		return
	}

	c.Header("Content-Disposition", `inline; filename="attendance.png"`)
	c.Data(http.StatusOK, "image/png", img)
}

// Validate godoc
// @Summary Validate a student check-in against an issued token
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.ValidateRequest true "Check-in attempt"
// @Success 200 {object} response.Envelope
// @Router /attendance/validate [post]
func (h *AttendanceHandler) Validate(c *gin.Context) {
	var req service.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	outcome, err := h.validator.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, outcome)
}

// Report godoc
// @Summary Attendance report for a class and date
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param page query int false "Page (omit for full list)"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance/class/{classId}/report [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	date, err := queryDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := queryPaging(c)

	rows, pagination, err := h.reports.Report(c.Request.Context(), c.Param("classId"), date, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// ExportReport godoc
// @Summary Export a class report as CSV or PDF
// @Tags Attendance
// @Param classId path string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} byte
// @Router /attendance/class/{classId}/report/export [get]
func (h *AttendanceHandler) ExportReport(c *gin.Context) {
	date, err := queryDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	classID := c.Param("classId")

	dataset, err := h.reports.ReportDataset(c.Request.Context(), classID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	title := "attendance " + classID + " " + date.Format("2006-01-02")
	switch strings.ToLower(c.DefaultQuery("format", "csv")) {
	case "pdf":
		data, err := h.pdf.Render(dataset, title)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="report.pdf"`)
		c.Data(http.StatusOK, "application/pdf", data)
	case "csv":
		data, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="report.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}

// LiveCount godoc
// @Summary Number of students marked present today
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/class/{classId}/live-count [get]
func (h *AttendanceHandler) LiveCount(c *gin.Context) {
	count, err := h.reports.LiveCount(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"live_count": count})
}

// Alerts godoc
// @Summary Alert feed for a class
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param severity query string false "LOW, MEDIUM or HIGH"
// @Param page query int false "Page (omit for full list)"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance/class/{classId}/alerts [get]
func (h *AttendanceHandler) Alerts(c *gin.Context) {
	severity, err := querySeverity(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := queryPaging(c)

	rows, pagination, err := h.reports.Alerts(c.Request.Context(), c.Param("classId"), severity, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Dashboard godoc
// @Summary Teacher dashboard for a class and date
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/class/{classId}/dashboard [get]
func (h *AttendanceHandler) Dashboard(c *gin.Context) {
	date, err := queryDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	dashboard, cacheHit, err := h.reports.Dashboard(c.Request.Context(), service.DashboardQuery{
		ClassID: c.Param("classId"),
		Date:    date,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil, map[string]interface{}{"cache_hit": cacheHit})
}

// DashboardPaged godoc
// @Summary Teacher dashboard with paged report and alert feed
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Param severity query string false "LOW, MEDIUM or HIGH"
// @Success 200 {object} response.Envelope
// @Router /attendance/class/{classId}/dashboard/paged [get]
func (h *AttendanceHandler) DashboardPaged(c *gin.Context) {
	date, err := queryDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	severity, err := querySeverity(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := queryPaging(c)
	if page <= 0 {
		page = 1
	}

	dashboard, _, err := h.reports.Dashboard(c.Request.Context(), service.DashboardQuery{
		ClassID:  c.Param("classId"),
		Date:     date,
		Page:     page,
		PageSize: size,
		Severity: severity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dashboard)
}

func queryDate(c *gin.Context) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return time.Now(), nil
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return date, nil
}

func queryPaging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}

func querySeverity(c *gin.Context) (*models.AlertSeverity, error) {
	raw := strings.ToUpper(strings.TrimSpace(c.Query("severity")))
	if raw == "" {
		return nil, nil
	}
	severity := models.AlertSeverity(raw)
	if !severity.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "severity must be LOW, MEDIUM or HIGH")
	}
	return &severity, nil
}

func optionalFloat(c *gin.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
