package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/retzius/attendance-api/internal/models"
	"github.com/retzius/attendance-api/internal/repository"
	appErrors "github.com/retzius/attendance-api/pkg/errors"
	"github.com/retzius/attendance-api/pkg/storage"
)

type enrollmentRepository interface {
	FindByPair(ctx context.Context, studentID, subjectID string) (*models.Enrollment, error)
	ExistsByPair(ctx context.Context, studentID, subjectID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
	Roster(ctx context.Context, subjectID string) ([]models.RosterEntry, error)
}

// subjectGuard is the ownership predicate shared by every subject-scoped
// operation: it resolves a subject by id AND owner in one lookup, so an
// unowned subject is indistinguishable from a missing one.
type subjectGuard interface {
	FindOwned(ctx context.Context, id, teacherID string) (*models.Subject, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type attendanceCacheInvalidator interface {
	InvalidateAttendance(ctx context.Context, subjectID string) error
}

// EnrollmentService orchestrates the student-subject association together
// with the subject-scoped photo lifecycle.
type EnrollmentService struct {
	repo     enrollmentRepository
	subjects subjectGuard
	students studentReader
	photos   storage.PhotoStore
	cache    attendanceCacheInvalidator
	logger   *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, subjects subjectGuard, students studentReader, photos storage.PhotoStore, cache attendanceCacheInvalidator, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, subjects: subjects, students: students, photos: photos, cache: cache, logger: logger}
}

// Enroll links a student to one of the caller's subjects. The photo copy
// runs before the row insert; if the insert then fails the copy is undone,
// so either both sides commit or neither is observable.
func (s *EnrollmentService) Enroll(ctx context.Context, subjectID, studentID string, claims *models.JWTClaims) (*models.Enrollment, error) {
	subject, err := s.subjects.FindOwned(ctx, subjectID, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	exists, err := s.repo.ExistsByPair(ctx, studentID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this subject")
	}

	photoRef, err := s.photos.CopyToSubjectFolder(student.ControlNumber, claims.FullName, subject.Name)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	enrollment := &models.Enrollment{StudentID: studentID, SubjectID: subjectID, PhotoURL: &photoRef}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if cleanupErr := s.photos.DeleteFromSubject(student.ControlNumber, claims.FullName, subject.Name); cleanupErr != nil {
			s.logger.Warn("failed to undo subject photo copy",
				zap.String("subject_id", subjectID),
				zap.String("student_id", studentID),
				zap.Error(cleanupErr))
		}
		if errors.Is(err, repository.ErrDuplicatePair) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	return enrollment, nil
}

// Unenroll removes the link and its subject-scoped photo. Photo deletion
// runs first: if the store fails, the enrollment row is kept so the asset
// reference is not lost before cleanup can be retried.
func (s *EnrollmentService) Unenroll(ctx context.Context, subjectID, studentID string, claims *models.JWTClaims) error {
	subject, err := s.subjects.FindOwned(ctx, subjectID, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollment, err := s.repo.FindByPair(ctx, studentID, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if err := s.photos.DeleteFromSubject(student.ControlNumber, claims.FullName, subject.Name); err != nil {
		return appErrors.FromError(err)
	}

	if err := s.repo.Delete(ctx, enrollment.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}

	s.invalidateAttendance(ctx, subjectID)
	return nil
}

// Roster lists the students enrolled in one of the caller's subjects.
func (s *EnrollmentService) Roster(ctx context.Context, subjectID string, claims *models.JWTClaims) ([]models.RosterEntry, error) {
	if _, err := s.subjects.FindOwned(ctx, subjectID, claims.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	roster, err := s.repo.Roster(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return roster, nil
}

func (s *EnrollmentService) invalidateAttendance(ctx context.Context, subjectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAttendance(ctx, subjectID); err != nil {
		s.logger.Warn("failed to invalidate attendance cache", zap.String("subject_id", subjectID), zap.Error(err))
	}
}
