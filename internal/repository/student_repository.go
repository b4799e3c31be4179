package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/retzius/attendance-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students visible to a teacher: those enrolled in at least one
// of the teacher's subjects. An optional search matches name or control number.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := `FROM students s
JOIN enrollments e ON e.student_id = s.id
JOIN subjects sub ON sub.id = e.subject_id`
	conditions := []string{"sub.teacher_id = $1"}
	args := []interface{}{filter.TeacherID}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(s.control_number) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT DISTINCT s.id, s.first_name, s.last_name, s.control_number, s.photo_url, s.created_at, s.updated_at
        %s ORDER BY s.last_name ASC, s.first_name ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT s.id) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, first_name, last_name, control_number, photo_url, created_at, updated_at FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// FindByControlNumber fetches a student by control number.
func (r *StudentRepository) FindByControlNumber(ctx context.Context, controlNumber string) (*models.Student, error) {
	const query = `SELECT id, first_name, last_name, control_number, photo_url, created_at, updated_at FROM students WHERE control_number = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, controlNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by control number: %w", err)
	}
	return &student, nil
}

// ExistsByControlNumber checks control number uniqueness, optionally
// excluding one student id during updates.
func (r *StudentRepository) ExistsByControlNumber(ctx context.Context, controlNumber, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE control_number = $1"
	args := []interface{}{controlNumber}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check control number: %w", err)
	}
	return true, nil
}

// Create persists a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, first_name, last_name, control_number, photo_url, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :control_number, :photo_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateWithEnrollmentPhotos commits an identity change together with the
// refreshed subject-scoped photo references in one transaction. Either the
// rename and every re-keyed reference land, or none do.
func (r *StudentRepository) UpdateWithEnrollmentPhotos(ctx context.Context, student *models.Student, photoRefs map[string]string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	student.UpdatedAt = time.Now().UTC()
	const updateStudent = `UPDATE students SET first_name = :first_name, last_name = :last_name, control_number = :control_number, photo_url = :photo_url, updated_at = :updated_at
        WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateStudent, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}

	const updateEnrollment = `UPDATE enrollments SET photo_url = $2 WHERE id = $1`
	for enrollmentID, ref := range photoRefs {
		if _, err := tx.ExecContext(ctx, updateEnrollment, enrollmentID, ref); err != nil {
			return fmt.Errorf("update enrollment photo: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student update: %w", err)
	}
	committed = true
	return nil
}

// Delete removes a student; enrollments and attendance cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
