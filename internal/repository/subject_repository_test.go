package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/retzius/attendance-api/internal/models"
)

func TestSubjectRepositoryFindOwned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "schedule", "description", "teacher_id", "created_at", "updated_at"}).
		AddRow("sub-1", "Mathematics", nil, nil, "teacher-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND teacher_id = $2")).
		WithArgs("sub-1", "teacher-1").
		WillReturnRows(rows)

	subject, err := repo.FindOwned(context.Background(), "sub-1", "teacher-1")
	require.NoError(t, err)
	require.Equal(t, "Mathematics", subject.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryFindOwnedOtherTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND teacher_id = $2")).
		WithArgs("sub-1", "intruder").
		WillReturnError(sql.ErrNoRows)

	subject, err := repo.FindOwned(context.Background(), "sub-1", "intruder")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.Nil(t, subject)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryUpdateKeepsOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	subject := &models.Subject{ID: "sub-1", Name: "Algebra", TeacherID: "teacher-1"}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE subjects SET name = ?, schedule = ?, description = ?, updated_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), subject)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
