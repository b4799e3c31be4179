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

// ErrBatchExists reports that the subject already has attendance recorded
// for the requested date.
var ErrBatchExists = fmt.Errorf("attendance already recorded for date")

// AttendanceRepository handles persistence of attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ExistsForSubjectDate reports whether any attendance row exists for the
// subject on the given date. The gate is subject-wide: a single existing
// row blocks a whole new batch.
func (r *AttendanceRepository) ExistsForSubjectDate(ctx context.Context, subjectID string, date time.Time) (bool, error) {
	const query = `SELECT 1 FROM attendance a
        JOIN enrollments e ON e.id = a.enrollment_id
        WHERE e.subject_id = $1 AND a.date = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, subjectID, date); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check attendance batch: %w", err)
	}
	return true, nil
}

// InsertBatch writes one attendance batch atomically. An advisory lock on
// (subject, date) serializes concurrent batches before the duplicate-date
// gate runs; row locks alone cannot do that while the date has no rows yet.
func (r *AttendanceRepository) InsertBatch(ctx context.Context, subjectID string, date time.Time, rows []models.Attendance) ([]models.Attendance, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attendance batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const lock = `SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2, 0))`
	if _, err := tx.ExecContext(ctx, lock, subjectID, date.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("lock attendance batch: %w", err)
	}

	const gate = `SELECT 1 FROM attendance a
        JOIN enrollments e ON e.id = a.enrollment_id
        WHERE e.subject_id = $1 AND a.date = $2 LIMIT 1 FOR UPDATE OF a`
	var exists int
	if err := tx.GetContext(ctx, &exists, gate, subjectID, date); err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("check attendance batch: %w", err)
		}
	} else {
		return nil, ErrBatchExists
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO attendance (id, enrollment_id, date, present, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	stored := make([]models.Attendance, 0, len(rows))
	for i := range rows {
		rec := rows[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.Date = date
		rec.CreatedAt = now
		if _, err := tx.ExecContext(ctx, insert, rec.ID, rec.EnrollmentID, rec.Date, rec.Present, rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert attendance row: %w", err)
		}
		stored = append(stored, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attendance batch: %w", err)
	}
	committed = true
	return stored, nil
}

// History returns attendance joined with student identity for a subject,
// bounded by inclusive dates and ordered by date, surname, first name.
func (r *AttendanceRepository) History(ctx context.Context, subjectID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	base := `SELECT s.id AS student_id, s.first_name, s.last_name, a.date, a.present
        FROM attendance a
        JOIN enrollments e ON e.id = a.enrollment_id
        JOIN students s ON s.id = e.student_id`
	conditions := []string{"e.subject_id = $1"}
	args := []interface{}{subjectID}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY a.date ASC, s.last_name ASC, s.first_name ASC", base, strings.Join(conditions, " AND "))

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance history: %w", err)
	}
	return records, nil
}
