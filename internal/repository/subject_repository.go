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

// SubjectRepository manages persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindOwned resolves a subject by id AND owner in a single query. Subjects
// that exist but belong to another teacher come back as sql.ErrNoRows, so
// callers cannot distinguish them from missing ones.
func (r *SubjectRepository) FindOwned(ctx context.Context, id, teacherID string) (*models.Subject, error) {
	const query = `SELECT id, name, schedule, description, teacher_id, created_at, updated_at
        FROM subjects WHERE id = $1 AND teacher_id = $2 LIMIT 1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find owned subject: %w", err)
	}
	return &subject, nil
}

// ListByTeacher returns all subjects owned by a teacher.
func (r *SubjectRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Subject, error) {
	const query = `SELECT id, name, schedule, description, teacher_id, created_at, updated_at
        FROM subjects WHERE teacher_id = $1 ORDER BY name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Create persists a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	now := time.Now().UTC()
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, name, schedule, description, teacher_id, created_at, updated_at)
        VALUES (:id, :name, :schedule, :description, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns. The owner column is never touched.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, schedule = :schedule, description = :description, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Delete removes a subject; enrollments and their attendance cascade.
func (r *SubjectRepository) Delete(ctx context.Context, id, teacherID string) error {
	const query = `DELETE FROM subjects WHERE id = $1 AND teacher_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, teacherID); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}
