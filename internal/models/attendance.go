package models

import "time"

// AttendanceRecord is one committed check-in. At most one record exists per
// (student, class, local calendar day); the marked_on column backs the unique
// index that enforces this under concurrent submissions.
type AttendanceRecord struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	ClassID     string    `db:"class_id" json:"class_id"`
	MarkedAt    time.Time `db:"marked_at" json:"marked_at"`
	MarkedOn    time.Time `db:"marked_on" json:"-"`
}

// AttendanceReportFilter scopes class report queries to a day window with
// optional pagination. Page <= 0 disables paging and returns the full list.
type AttendanceReportFilter struct {
	ClassID  string
	Start    time.Time
	End      time.Time
	Page     int
	PageSize int
}

// ValidationStatus classifies the terminal outcome of one validation call.
type ValidationStatus string

const (
	ValidationMarked        ValidationStatus = "marked"
	ValidationAlreadyMarked ValidationStatus = "already_marked"
	ValidationRejected      ValidationStatus = "rejected"
)

// RejectionReason identifies which security check terminated the pipeline.
type RejectionReason string

const (
	RejectInvalidToken    RejectionReason = "invalid_token"
	RejectTokenExpired    RejectionReason = "token_expired"
	RejectClassMismatch   RejectionReason = "class_mismatch"
	RejectOutsideGeofence RejectionReason = "outside_geofence"
)

// ValidationOutcome is the decided result of the pipeline. A rejection always
// has a Reason and never coexists with an infrastructure error: faults are
// returned separately so a store outage is never mistaken for fraud.
type ValidationOutcome struct {
	Status      ValidationStatus `json:"status"`
	Reason      RejectionReason  `json:"reason,omitempty"`
	StudentName string           `json:"student_name,omitempty"`
	Message     string           `json:"message"`
}

// Rejected reports whether the outcome is a hard security rejection.
func (o ValidationOutcome) Rejected() bool {
	return o.Status == ValidationRejected
}
