package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/presensia/presensia-api/internal/models"
)

// AttendanceRepository persists committed attendance records.
//
// The attendance_records table carries a unique index on
// (student_id, class_id, marked_on); Insert relies on it to guarantee that at
// most one record per student, class and calendar day survives concurrent
// submissions, regardless of the pipeline's read-before-write check.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Insert writes a new record. It returns false without error when the unique
// index rejected the row, meaning another request already marked this student
// today.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MarkedOn.IsZero() {
		y, m, d := record.MarkedAt.Date()
		record.MarkedOn = time.Date(y, m, d, 0, 0, 0, 0, record.MarkedAt.Location())
	}
	query := `INSERT INTO attendance_records (id, student_id, student_name, class_id, marked_at, marked_on)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, class_id, marked_on) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		record.ID, record.StudentID, record.StudentName, record.ClassID, record.MarkedAt, record.MarkedOn)
	if err != nil {
		return false, fmt.Errorf("insert attendance record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert attendance record result: %w", err)
	}
	return affected == 1, nil
}

// FindByStudentClassAndRange returns records for one student in one class
// within the [start, end] window.
func (r *AttendanceRepository) FindByStudentClassAndRange(ctx context.Context, studentID, classID string, start, end time.Time) ([]models.AttendanceRecord, error) {
	query := `SELECT id, student_id, student_name, class_id, marked_at, marked_on
FROM attendance_records
WHERE student_id = $1 AND class_id = $2 AND marked_at >= $3 AND marked_at <= $4
ORDER BY marked_at, id`
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, studentID, classID, start, end); err != nil {
		return nil, fmt.Errorf("find attendance by student: %w", err)
	}
	return rows, nil
}

// ListByClassAndRange returns class records within the window, paginated when
// filter.Page is positive, with a total count. The (marked_at, id) sort key
// keeps pages stable under concurrent inserts.
func (r *AttendanceRepository) ListByClassAndRange(ctx context.Context, filter models.AttendanceReportFilter) ([]models.AttendanceRecord, int, error) {
	base := `FROM attendance_records WHERE class_id = $1 AND marked_at >= $2 AND marked_at <= $3`

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, filter.ClassID, filter.Start, filter.End); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}

	query := `SELECT id, student_id, student_name, class_id, marked_at, marked_on ` + base + ` ORDER BY marked_at, id`
	args := []interface{}{filter.ClassID, filter.Start, filter.End}
	if filter.Page > 0 {
		size := filter.PageSize
		if size <= 0 || size > 200 {
			size = 20
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (filter.Page-1)*size)
	}

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}
	return rows, total, nil
}

// CountByClassAndRange returns the number of records for a class within the
// window.
func (r *AttendanceRepository) CountByClassAndRange(ctx context.Context, classID string, start, end time.Time) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM attendance_records WHERE class_id = $1 AND marked_at >= $2 AND marked_at <= $3`
	if err := r.db.GetContext(ctx, &total, query, classID, start, end); err != nil {
		return 0, fmt.Errorf("count attendance records: %w", err)
	}
	return total, nil
}
