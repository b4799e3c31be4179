package models

import "time"

// Enrollment links one student to one subject. The (student, subject) pair
// is unique; the row carries the subject-scoped copy of the student photo.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	PhotoURL  *string   `db:"photo_url" json:"photo_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RosterEntry is an enrolled student as shown on a subject roster.
type RosterEntry struct {
	StudentID     string  `db:"student_id" json:"student_id"`
	ControlNumber string  `db:"control_number" json:"control_number"`
	FirstName     string  `db:"first_name" json:"first_name"`
	LastName      string  `db:"last_name" json:"last_name"`
	PhotoURL      *string `db:"photo_url" json:"photo_url,omitempty"`
}

// EnrollmentPhoto pairs an enrollment with subject context needed for
// re-keying photo assets when a student's control number changes.
type EnrollmentPhoto struct {
	EnrollmentID string `db:"enrollment_id"`
	SubjectID    string `db:"subject_id"`
	SubjectName  string `db:"subject_name"`
	TeacherName  string `db:"teacher_name"`
}
