package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/presensia/presensia-api/internal/models"
	appErrors "github.com/presensia/presensia-api/pkg/errors"
	"github.com/presensia/presensia-api/pkg/export"
)

type attendanceReader interface {
	ListByClassAndRange(ctx context.Context, filter models.AttendanceReportFilter) ([]models.AttendanceRecord, int, error)
	CountByClassAndRange(ctx context.Context, classID string, start, end time.Time) (int, error)
}

type alertReader interface {
	ListByClass(ctx context.Context, filter models.AlertFilter) ([]models.AttendanceAlert, int, error)
}

// ReportService builds the read-only projections over committed records and
// alerts: live count, per-day report, alert feed and the composed teacher
// dashboard.
type ReportService struct {
	records attendanceReader
	alerts  alertReader
	cache   *CacheService
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService constructs the service.
func NewReportService(records attendanceReader, alerts alertReader, cache *CacheService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{records: records, alerts: alerts, cache: cache, logger: logger, now: time.Now}
}

// LiveCount returns how many students are marked present today.
func (s *ReportService) LiveCount(ctx context.Context, classID string) (int, error) {
	start, end := dayWindow(s.now())
	count, err := s.records.CountByClassAndRange(ctx, classID, start, end)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	return count, nil
}

// Report returns the attendance records for a class on the given date.
// page <= 0 returns the full list; pagination metadata accompanies paged
// responses.
func (s *ReportService) Report(ctx context.Context, classID string, date time.Time, page, pageSize int) ([]models.AttendanceRecord, *models.Pagination, error) {
	start, end := dayWindow(date)
	rows, total, err := s.records.ListByClassAndRange(ctx, models.AttendanceReportFilter{
		ClassID:  classID,
		Start:    start,
		End:      end,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	var pagination *models.Pagination
	if page > 0 {
		pagination = &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	}
	return rows, pagination, nil
}

// Alerts returns the alert feed for a class, optionally filtered by severity
// and paginated.
func (s *ReportService) Alerts(ctx context.Context, classID string, severity *models.AlertSeverity, page, pageSize int) ([]models.AttendanceAlert, *models.Pagination, error) {
	if severity != nil && !severity.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "severity must be LOW, MEDIUM or HIGH")
	}
	rows, total, err := s.alerts.ListByClass(ctx, models.AlertFilter{
		ClassID:  classID,
		Severity: severity,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alerts")
	}
	var pagination *models.Pagination
	if page > 0 {
		pagination = &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	}
	return rows, pagination, nil
}

// DashboardQuery scopes a dashboard request. Page <= 0 composes the full,
// unpaged dashboard.
type DashboardQuery struct {
	ClassID  string
	Date     time.Time
	Page     int
	PageSize int
	Severity *models.AlertSeverity
}

// Dashboard composes live count, report and alerts into the teacher view.
// Unpaged dashboards are served from cache when one is configured; paged
// views always hit the stores.
func (s *ReportService) Dashboard(ctx context.Context, q DashboardQuery) (*models.TeacherDashboard, bool, error) {
	cacheable := q.Page <= 0 && q.Severity == nil
	cacheKey := fmt.Sprintf("dash:%s:%s", q.ClassID, q.Date.Format("2006-01-02"))
	if cacheable {
		var cached models.TeacherDashboard
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	report, _, err := s.Report(ctx, q.ClassID, q.Date, q.Page, q.PageSize)
	if err != nil {
		return nil, false, err
	}
	alerts, _, err := s.Alerts(ctx, q.ClassID, q.Severity, q.Page, q.PageSize)
	if err != nil {
		return nil, false, err
	}
	liveCount, err := s.LiveCount(ctx, q.ClassID)
	if err != nil {
		return nil, false, err
	}

	dashboard := &models.TeacherDashboard{
		LiveCount: liveCount,
		Report:    report,
		Alerts:    alerts,
	}
	if cacheable {
		if err := s.cache.Set(ctx, cacheKey, dashboard, 0); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return dashboard, false, nil
}

// ReportDataset flattens a day's report into a tabular dataset for CSV or
// PDF export.
func (s *ReportService) ReportDataset(ctx context.Context, classID string, date time.Time) (export.Dataset, error) {
	rows, _, err := s.Report(ctx, classID, date, 0, 0)
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{Headers: []string{"Student ID", "Name", "Class", "Marked At"}}
	for _, rec := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Student ID": rec.StudentID,
			"Name":       rec.StudentName,
			"Class":      rec.ClassID,
			"Marked At":  rec.MarkedAt.Format(time.RFC3339),
		})
	}
	return data, nil
}
