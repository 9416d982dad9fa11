package models

// TeacherDashboard aggregates the teacher view for one class and day: the
// live present count, the attendance report and the alert feed. The two
// underlying reads are independent; no transactional consistency is implied
// between them.
type TeacherDashboard struct {
	LiveCount int                `json:"live_count"`
	Report    []AttendanceRecord `json:"attendance_report"`
	Alerts    []AttendanceAlert  `json:"alerts"`
}
