package models

import "time"

// AlertSeverity grades how suspicious a validation attempt was.
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "LOW"
	SeverityMedium AlertSeverity = "MEDIUM"
	SeverityHigh   AlertSeverity = "HIGH"
)

// Valid returns true when the severity is a supported value.
func (s AlertSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// AttendanceAlert is an immutable record of a suspicious or anomalous
// validation attempt. Alerts are append-only; one validation may emit zero,
// one or several of them.
type AttendanceAlert struct {
	ID        string        `db:"id" json:"id"`
	StudentID string        `db:"student_id" json:"student_id"`
	ClassID   string        `db:"class_id" json:"class_id"`
	Message   string        `db:"message" json:"message"`
	Severity  AlertSeverity `db:"severity" json:"severity"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// AlertFilter scopes alert queries by class with an optional severity filter
// and optional pagination.
type AlertFilter struct {
	ClassID  string
	Severity *AlertSeverity
	Page     int
	PageSize int
}
