package models

// Student is a directory entry, read-only from the validation pipeline's
// perspective. DeviceID is the bound device when the student has registered
// one; nil means device binding is not checked.
type Student struct {
	ID       string  `db:"id" json:"id"`
	RollNo   string  `db:"roll_no" json:"roll_no"`
	Name     string  `db:"name" json:"name"`
	ClassID  string  `db:"class_id" json:"class_id"`
	DeviceID *string `db:"device_id" json:"device_id,omitempty"`
}
