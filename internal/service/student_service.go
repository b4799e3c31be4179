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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByControlNumber(ctx context.Context, controlNumber string) (*models.Student, error)
	ExistsByControlNumber(ctx context.Context, controlNumber, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateWithEnrollmentPhotos(ctx context.Context, student *models.Student, photoRefs map[string]string) error
	Delete(ctx context.Context, id string) error
}

type enrollmentPhotoReader interface {
	ListPhotoContexts(ctx context.Context, studentID string) ([]models.EnrollmentPhoto, error)
}

// StudentService manages student records and keeps the photo store in step
// with the control number, which keys every photo asset.
type StudentService struct {
	repo        studentRepository
	enrollments enrollmentPhotoReader
	photos      storage.PhotoStore
	cache       attendanceCacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, enrollments enrollmentPhotoReader, photos storage.PhotoStore, cache attendanceCacheInvalidator, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        repo,
		enrollments: enrollments,
		photos:      photos,
		cache:       cache,
		validator:   validator.New(),
		logger:      logger,
	}
}

// Create registers a student together with the initial photo. The photo
// upload happens first; a failed row insert undoes it so no orphan file
// survives.
func (s *StudentService) Create(ctx context.Context, req *models.CreateStudentRequest, photo []byte) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if len(photo) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo is required")
	}

	taken, err := s.repo.ExistsByControlNumber(ctx, req.ControlNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate control number")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "control number already registered")
	}

	photoRef, err := s.photos.UploadInitial(req.ControlNumber, photo)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	student := &models.Student{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ControlNumber: req.ControlNumber,
		PhotoURL:      &photoRef,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if cleanupErr := s.photos.DeleteInitial(req.ControlNumber); cleanupErr != nil {
			s.logger.Warn("failed to undo initial photo upload",
				zap.String("control_number", req.ControlNumber),
				zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// List returns students visible to the caller with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return students, pagination, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByControlNumber looks a student up by the external identity key.
func (s *StudentService) GetByControlNumber(ctx context.Context, controlNumber string) (*models.Student, error) {
	student, err := s.repo.FindByControlNumber(ctx, controlNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Update modifies student identity. Changing the control number re-keys the
// initial photo and every subject-scoped copy before the row update commits;
// the database transaction is the last step so a storage failure leaves the
// record pointing at assets that still exist under the old key.
func (s *StudentService) Update(ctx context.Context, id string, req *models.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	oldControl := student.ControlNumber
	if req.FirstName != nil {
		student.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		student.LastName = *req.LastName
	}

	photoRefs := map[string]string{}
	if req.ControlNumber != nil && *req.ControlNumber != oldControl {
		newControl := *req.ControlNumber
		taken, err := s.repo.ExistsByControlNumber(ctx, newControl, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate control number")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "control number already registered")
		}

		contexts, err := s.enrollments.ListPhotoContexts(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
		}

		initialRef, err := s.photos.RenameInitial(oldControl, newControl)
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		student.ControlNumber = newControl
		student.PhotoURL = &initialRef

		for _, pc := range contexts {
			ref, err := s.photos.CopyToSubjectFolder(newControl, pc.TeacherName, pc.SubjectName)
			if err != nil {
				return nil, appErrors.FromError(err)
			}
			if err := s.photos.DeleteFromSubject(oldControl, pc.TeacherName, pc.SubjectName); err != nil {
				s.logger.Warn("failed to remove stale subject photo",
					zap.String("student_id", id),
					zap.String("subject_id", pc.SubjectID),
					zap.Error(err))
			}
			photoRefs[pc.EnrollmentID] = ref
		}
	}

	if err := s.repo.UpdateWithEnrollmentPhotos(ctx, student, photoRefs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student. Subject-scoped photos go first, then the
// initial photo, then the row; enrollments and attendance cascade with it.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	contexts, err := s.enrollments.ListPhotoContexts(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	for _, pc := range contexts {
		if err := s.photos.DeleteFromSubject(student.ControlNumber, pc.TeacherName, pc.SubjectName); err != nil {
			return appErrors.FromError(err)
		}
	}
	if err := s.photos.DeleteInitial(student.ControlNumber); err != nil {
		return appErrors.FromError(err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}

	if s.cache != nil {
		for _, pc := range contexts {
			if err := s.cache.InvalidateAttendance(ctx, pc.SubjectID); err != nil {
				s.logger.Warn("failed to invalidate attendance cache", zap.String("subject_id", pc.SubjectID), zap.Error(err))
			}
		}
	}
	return nil
}
