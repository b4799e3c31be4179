package models

import "time"

// Attendance is one presence mark for an enrollment on a calendar date.
// A subject accepts at most one attendance batch per date.
type Attendance struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Date         time.Time `db:"date" json:"date"`
	Present      bool      `db:"present" json:"present"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AttendanceRecord is a history row joined with student identity, ordered
// by date then surname then first name.
type AttendanceRecord struct {
	StudentID string    `db:"student_id" json:"student_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Date      time.Time `db:"date" json:"date"`
	Present   bool      `db:"present" json:"present"`
}

// AttendanceEntry is one student's presence mark inside a batch submission.
type AttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	Present   bool   `json:"present"`
}

// RecordAttendanceRequest submits one day's marks for a whole subject.
// Date uses the YYYY-MM-DD calendar form; time of day is irrelevant. An
// absent date means today.
type RecordAttendanceRequest struct {
	Date    string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceFilter bounds a history query with inclusive dates.
type AttendanceFilter struct {
	From *time.Time
	To   *time.Time
}
