package models

import "time"

// AttendanceToken is a short-lived credential bound to a class and the
// issuing teacher's position. It is created once, read during validation and
// either deleted after its policy window elapses or left to lapse in the
// store.
type AttendanceToken struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	TeacherID string    `json:"teacher_id"`
	IssuedAt  time.Time `json:"issued_at"`
	OriginLat *float64  `json:"origin_lat,omitempty"`
	OriginLon *float64  `json:"origin_lon,omitempty"`
}

// HasOrigin reports whether the token carries issuing coordinates. Tokens
// issued without a position skip the geofence check entirely.
func (t *AttendanceToken) HasOrigin() bool {
	return t != nil && t.OriginLat != nil && t.OriginLon != nil
}
