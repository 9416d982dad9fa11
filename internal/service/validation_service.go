package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/presensia/presensia-api/internal/models"
	appErrors "github.com/presensia/presensia-api/pkg/errors"
	"github.com/presensia/presensia-api/pkg/geo"
)

type tokenStore interface {
	Get(ctx context.Context, id string) (*models.AttendanceToken, error)
	Delete(ctx context.Context, id string) error
}

type attendanceStore interface {
	Insert(ctx context.Context, record *models.AttendanceRecord) (bool, error)
	FindByStudentClassAndRange(ctx context.Context, studentID, classID string, start, end time.Time) ([]models.AttendanceRecord, error)
}

type alertSink interface {
	Insert(ctx context.Context, alert *models.AttendanceAlert) error
}

type studentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// ValidationPolicy holds the tunable security constants. Zero values fall
// back to the deployment defaults the mobile clients are built against:
// a 30 second token window and a 30 meter geofence.
type ValidationPolicy struct {
	TokenTTL        time.Duration
	GeofenceRadiusM float64
}

// ValidateRequest is one check-in attempt.
type ValidateRequest struct {
	TokenID   string   `json:"token" validate:"required"`
	StudentID string   `json:"student_id" validate:"required"`
	ClassID   string   `json:"class_id" validate:"required"`
	DeviceID  string   `json:"device_id"`
	Lat       *float64 `json:"latitude"`
	Lon       *float64 `json:"longitude"`
}

// ValidationService runs the check-in security pipeline: token lookup,
// expiry, class binding, duplicate suppression, device binding, geofencing,
// and finally the attendance commit. Checks run in that order and the first
// terminal condition wins.
//
// Every terminal rejection writes exactly one alert before returning.
// Infrastructure faults (store unavailable, write failure) are returned as
// errors and never converted into rejections: an outage is not evidence of
// fraud.
type ValidationService struct {
	tokens    tokenStore
	records   attendanceStore
	alerts    alertSink
	students  studentDirectory
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	policy    ValidationPolicy
	now       func() time.Time
}

// NewValidationService constructs the pipeline with its collaborators.
func NewValidationService(tokens tokenStore, records attendanceStore, alerts alertSink, students studentDirectory, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, policy ValidationPolicy) *ValidationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.TokenTTL <= 0 {
		policy.TokenTTL = 30 * time.Second
	}
	if policy.GeofenceRadiusM <= 0 {
		policy.GeofenceRadiusM = 30
	}
	return &ValidationService{
		tokens:    tokens,
		records:   records,
		alerts:    alerts,
		students:  students,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		policy:    policy,
		now:       time.Now,
	}
}

// Validate evaluates one check-in attempt and returns its terminal outcome.
func (s *ValidationService) Validate(ctx context.Context, req ValidateRequest) (*models.ValidationOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}

	// Step 1: token lookup.
	token, err := s.tokens.Get(ctx, req.TokenID)
	if err != nil {
		if errors.Is(err, appErrors.ErrTokenNotFound) {
			return s.reject(ctx, req, models.RejectInvalidToken, "Invalid QR attempt", models.SeverityHigh, "invalid QR code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "token store unavailable")
	}

	now := s.now()

	// Step 2: expiry. Expired tokens are deleted on first discovery so a
	// leaked QR cannot be replayed; the delete is idempotent.
	if now.After(token.IssuedAt.Add(s.policy.TokenTTL)) {
		if err := s.tokens.Delete(ctx, req.TokenID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "token store unavailable")
		}
		return s.reject(ctx, req, models.RejectTokenExpired, "Tried with expired QR", models.SeverityMedium, "QR code expired")
	}

	// Step 3: class binding.
	if token.ClassID != req.ClassID {
		return s.reject(ctx, req, models.RejectClassMismatch, "Token mismatch (wrong class)", models.SeverityHigh, "token not valid for this class")
	}

	// Step 4: duplicate suppression within the local calendar day.
	start, end := dayWindow(now)
	existing, err := s.records.FindByStudentClassAndRange(ctx, req.StudentID, req.ClassID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance store unavailable")
	}
	if len(existing) > 0 {
		return s.alreadyMarked(ctx, req)
	}

	// Step 5: identity resolution. An unknown student degrades to a
	// placeholder name; there is no device or position on file to compare
	// against, so steps 6 and 7 are skipped.
	studentName := "Unknown"
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil && !errors.Is(err, appErrors.ErrNotFound) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "student directory unavailable")
	}
	if student != nil {
		studentName = student.Name

		// Step 6: device binding. Advisory only: a mismatch is flagged
		// for review but does not block the check-in.
		if student.DeviceID != nil && req.DeviceID != "" && req.DeviceID != *student.DeviceID {
			if err := s.emitAlert(ctx, req, "Device mismatch", models.SeverityHigh); err != nil {
				return nil, err
			}
		}

		// Step 7: geofence against the token's issuing position. Skipped
		// when either side lacks coordinates.
		if token.HasOrigin() && req.Lat != nil && req.Lon != nil {
			if !geo.WithinRadius(*req.Lat, *req.Lon, *token.OriginLat, *token.OriginLon, s.policy.GeofenceRadiusM) {
				return s.reject(ctx, req, models.RejectOutsideGeofence, "Outside classroom", models.SeverityMedium, "outside the classroom location")
			}
		}
	}

	// Step 8: commit. The unique (student, class, day) index decides races
	// this method's read check cannot see.
	record := &models.AttendanceRecord{
		StudentID:   req.StudentID,
		StudentName: studentName,
		ClassID:     req.ClassID,
		MarkedAt:    now,
		MarkedOn:    start,
	}
	inserted, err := s.records.Insert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance store unavailable")
	}
	if !inserted {
		return s.alreadyMarked(ctx, req)
	}

	s.metrics.RecordValidation(string(models.ValidationMarked))
	s.logger.Info("attendance marked",
		zap.String("student_id", req.StudentID),
		zap.String("class_id", req.ClassID),
	)
	return &models.ValidationOutcome{
		Status:      models.ValidationMarked,
		StudentName: studentName,
		Message:     fmt.Sprintf("attendance marked for student %s", studentName),
	}, nil
}

func (s *ValidationService) reject(ctx context.Context, req ValidateRequest, reason models.RejectionReason, alertMessage string, severity models.AlertSeverity, outcomeMessage string) (*models.ValidationOutcome, error) {
	if err := s.emitAlert(ctx, req, alertMessage, severity); err != nil {
		return nil, err
	}
	s.metrics.RecordValidation(string(reason))
	s.logger.Info("check-in rejected",
		zap.String("reason", string(reason)),
		zap.String("student_id", req.StudentID),
		zap.String("class_id", req.ClassID),
	)
	return &models.ValidationOutcome{
		Status:  models.ValidationRejected,
		Reason:  reason,
		Message: outcomeMessage,
	}, nil
}

func (s *ValidationService) alreadyMarked(ctx context.Context, req ValidateRequest) (*models.ValidationOutcome, error) {
	if err := s.emitAlert(ctx, req, "Duplicate attendance attempt", models.SeverityLow); err != nil {
		return nil, err
	}
	s.metrics.RecordValidation(string(models.ValidationAlreadyMarked))
	return &models.ValidationOutcome{
		Status:  models.ValidationAlreadyMarked,
		Message: "attendance already marked",
	}, nil
}

func (s *ValidationService) emitAlert(ctx context.Context, req ValidateRequest, message string, severity models.AlertSeverity) error {
	alert := &models.AttendanceAlert{
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		Message:   message,
		Severity:  severity,
		CreatedAt: s.now(),
	}
	if err := s.alerts.Insert(ctx, alert); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "alert sink unavailable")
	}
	s.metrics.RecordAlert(string(severity))
	return nil
}

// dayWindow returns the local midnight-to-midnight window containing ts.
func dayWindow(ts time.Time) (time.Time, time.Time) {
	y, m, d := ts.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
	return start, start.Add(24*time.Hour - time.Nanosecond)
}
