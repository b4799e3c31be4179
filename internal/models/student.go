package models

import "time"

// Student represents a student record. The control number is the external
// identity key used for photo assets and stays distinct from the row id.
type Student struct {
	ID            string    `db:"id" json:"id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	ControlNumber string    `db:"control_number" json:"control_number"`
	PhotoURL      *string   `db:"photo_url" json:"photo_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CreateStudentRequest is the multipart form payload for registering a
// student; the photo bytes travel alongside as a file part.
type CreateStudentRequest struct {
	FirstName     string `form:"first_name" validate:"required,min=1,max=100"`
	LastName      string `form:"last_name" validate:"required,min=1,max=100"`
	ControlNumber string `form:"control_number" validate:"required,min=1,max=50"`
}

// UpdateStudentRequest is a partial student update; nil fields are left
// unchanged. Changing the control number re-keys every photo asset.
type UpdateStudentRequest struct {
	FirstName     *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName      *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	ControlNumber *string `json:"control_number,omitempty" validate:"omitempty,min=1,max=50"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	TeacherID string
	Search    string
	Page      int
	PageSize  int
}
