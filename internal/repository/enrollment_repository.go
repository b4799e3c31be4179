package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/retzius/attendance-api/internal/models"
)

// ErrDuplicatePair reports that an enrollment for the (student, subject)
// pair already exists. Exposed so services can map it to a conflict.
var ErrDuplicatePair = fmt.Errorf("enrollment already exists for pair")

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByPair returns the enrollment for a (student, subject) pair.
func (r *EnrollmentRepository) FindByPair(ctx context.Context, studentID, subjectID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, subject_id, photo_url, created_at FROM enrollments
        WHERE student_id = $1 AND subject_id = $2 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ExistsByPair checks whether the pair is already enrolled.
func (r *EnrollmentRepository) ExistsByPair(ctx context.Context, studentID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND subject_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create inserts the enrollment relying on the unique (student_id,
// subject_id) constraint, so two concurrent enrolls for the same pair
// cannot both succeed. A suppressed insert returns ErrDuplicatePair.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, subject_id, photo_url, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (student_id, subject_id) DO NOTHING
        RETURNING id`
	var id string
	err := r.db.GetContext(ctx, &id, query, enrollment.ID, enrollment.StudentID, enrollment.SubjectID, enrollment.PhotoURL, enrollment.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrDuplicatePair
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	enrollment.ID = id
	return nil
}

// Delete removes an enrollment; its attendance rows cascade.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// Roster lists enrolled students for a subject ordered by surname.
func (r *EnrollmentRepository) Roster(ctx context.Context, subjectID string) ([]models.RosterEntry, error) {
	const query = `SELECT s.id AS student_id, s.control_number, s.first_name, s.last_name, e.photo_url
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.subject_id = $1
        ORDER BY s.last_name ASC, s.first_name ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, subjectID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}

// RekeyTeacherPhotoRefs rewrites stored photo refs after a teacher rename,
// replacing the old folder prefix with the new one on every enrollment in
// that teacher's subjects. Refs that never carried the prefix are left alone.
func (r *EnrollmentRepository) RekeyTeacherPhotoRefs(ctx context.Context, teacherID, oldPrefix, newPrefix string) error {
	const query = `UPDATE enrollments AS e
        SET photo_url = $3 || substring(e.photo_url FROM char_length($2) + 1)
        FROM subjects sub
        WHERE sub.id = e.subject_id AND sub.teacher_id = $1
          AND left(e.photo_url, char_length($2)) = $2`
	if _, err := r.db.ExecContext(ctx, query, teacherID, oldPrefix, newPrefix); err != nil {
		return fmt.Errorf("rekey enrollment photo refs: %w", err)
	}
	return nil
}

// ListPhotoContexts returns, for each of a student's enrollments, the
// subject and owner names needed to address the subject-scoped photo copy.
func (r *EnrollmentRepository) ListPhotoContexts(ctx context.Context, studentID string) ([]models.EnrollmentPhoto, error) {
	const query = `SELECT e.id AS enrollment_id, e.subject_id, sub.name AS subject_name, u.full_name AS teacher_name
        FROM enrollments e
        JOIN subjects sub ON sub.id = e.subject_id
        JOIN users u ON u.id = sub.teacher_id
        WHERE e.student_id = $1`
	var contexts []models.EnrollmentPhoto
	if err := r.db.SelectContext(ctx, &contexts, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollment photo contexts: %w", err)
	}
	return contexts, nil
}
