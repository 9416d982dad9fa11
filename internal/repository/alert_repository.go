package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/presensia/presensia-api/internal/models"
)

// AlertRepository persists the append-only suspicious-event log. Alerts are
// never updated or deleted.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository constructs the repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Insert appends one alert.
func (r *AlertRepository) Insert(ctx context.Context, alert *models.AttendanceAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	query := `INSERT INTO attendance_alerts (id, student_id, class_id, message, severity, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.StudentID, alert.ClassID, alert.Message, alert.Severity, alert.CreatedAt); err != nil {
		return fmt.Errorf("insert attendance alert: %w", err)
	}
	return nil
}

// ListByClass returns alerts for a class, optionally filtered by severity and
// paginated, with a total count. The (created_at, id) sort key keeps pages
// stable while new alerts arrive.
func (r *AlertRepository) ListByClass(ctx context.Context, filter models.AlertFilter) ([]models.AttendanceAlert, int, error) {
	base := `FROM attendance_alerts WHERE class_id = $1`
	args := []interface{}{filter.ClassID}
	if filter.Severity != nil && filter.Severity.Valid() {
		base += fmt.Sprintf(" AND severity = $%d", len(args)+1)
		args = append(args, *filter.Severity)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance alerts: %w", err)
	}

	query := `SELECT id, student_id, class_id, message, severity, created_at ` + base + ` ORDER BY created_at, id`
	if filter.Page > 0 {
		size := filter.PageSize
		if size <= 0 || size > 200 {
			size = 20
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (filter.Page-1)*size)
	}

	var rows []models.AttendanceAlert
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance alerts: %w", err)
	}
	return rows, total, nil
}
