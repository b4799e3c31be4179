package models

import "time"

// Subject represents a course owned by exactly one teacher. The owner is
// fixed at creation time; update payloads cannot change it.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Schedule    *string   `db:"schedule" json:"schedule,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CreateSubjectRequest is the payload for registering a subject.
type CreateSubjectRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=150"`
	Schedule    *string `json:"schedule,omitempty" validate:"omitempty,max=150"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// UpdateSubjectRequest is a partial update; nil fields are left unchanged.
type UpdateSubjectRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=150"`
	Schedule    *string `json:"schedule,omitempty" validate:"omitempty,max=150"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}
