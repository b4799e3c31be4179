package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/retzius/attendance-api/internal/models"
	appErrors "github.com/retzius/attendance-api/pkg/errors"
	"github.com/retzius/attendance-api/pkg/storage"
)

type subjectRepository interface {
	FindOwned(ctx context.Context, id, teacherID string) (*models.Subject, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id, teacherID string) error
}

type rosterReader interface {
	Roster(ctx context.Context, subjectID string) ([]models.RosterEntry, error)
}

// SubjectService manages teacher-owned subjects. Every lookup is scoped by
// the caller's id, so cross-teacher access degenerates to a not-found.
type SubjectService struct {
	repo      subjectRepository
	roster    rosterReader
	photos    storage.PhotoStore
	cache     attendanceCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs SubjectService.
func NewSubjectService(repo subjectRepository, roster rosterReader, photos storage.PhotoStore, cache attendanceCacheInvalidator, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{
		repo:      repo,
		roster:    roster,
		photos:    photos,
		cache:     cache,
		validator: validator.New(),
		logger:    logger,
	}
}

// Create registers a new subject owned by the caller.
func (s *SubjectService) Create(ctx context.Context, req *models.CreateSubjectRequest, claims *models.JWTClaims) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject := &models.Subject{
		Name:        req.Name,
		Schedule:    req.Schedule,
		Description: req.Description,
		TeacherID:   claims.UserID,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// List returns all subjects owned by the caller.
func (s *SubjectService) List(ctx context.Context, claims *models.JWTClaims) ([]models.Subject, error) {
	subjects, err := s.repo.ListByTeacher(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Get returns a single subject owned by the caller.
func (s *SubjectService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Subject, error) {
	subject, err := s.repo.FindOwned(ctx, id, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Update modifies a subject's descriptive fields. Ownership never moves:
// the teacher id column is untouched by the repository update.
func (s *SubjectService) Update(ctx context.Context, id string, req *models.UpdateSubjectRequest, claims *models.JWTClaims) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, err := s.repo.FindOwned(ctx, id, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if req.Name != nil {
		subject.Name = *req.Name
	}
	if req.Schedule != nil {
		subject.Schedule = req.Schedule
	}
	if req.Description != nil {
		subject.Description = req.Description
	}

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject. Enrollments and attendance go with it through
// the foreign keys; each enrolled student's subject-scoped photo is removed
// from the store first so no orphan files are left behind.
func (s *SubjectService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	subject, err := s.repo.FindOwned(ctx, id, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	roster, err := s.roster.Roster(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	for _, entry := range roster {
		if err := s.photos.DeleteFromSubject(entry.ControlNumber, claims.FullName, subject.Name); err != nil {
			return appErrors.FromError(err)
		}
	}

	if err := s.repo.Delete(ctx, id, claims.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}

	s.invalidateAttendance(ctx, id)
	return nil
}

func (s *SubjectService) invalidateAttendance(ctx context.Context, subjectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAttendance(ctx, subjectID); err != nil {
		s.logger.Warn("failed to invalidate attendance cache", zap.String("subject_id", subjectID), zap.Error(err))
	}
}
