package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retzius/attendance-api/internal/models"
	appErrors "github.com/retzius/attendance-api/pkg/errors"
)

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	photos := &mockPhotoStore{}
	svc := NewStudentService(repo, &mockEnrollmentRepo{}, photos, &mockCache{}, zap.NewNop())

	req := &models.CreateStudentRequest{FirstName: "Ana", LastName: "Alvarez", ControlNumber: "A100"}
	student, err := svc.Create(context.Background(), req, []byte("png-bytes"))
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Contains(t, photos.uploads, "A100")
	require.NotNil(t, student.PhotoURL)
	assert.Equal(t, "photos/A100.png", *student.PhotoURL)
}

func TestStudentServiceCreateMissingPhoto(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, &mockEnrollmentRepo{}, &mockPhotoStore{}, &mockCache{}, zap.NewNop())

	req := &models.CreateStudentRequest{FirstName: "Ana", LastName: "Alvarez", ControlNumber: "A100"}
	_, err := svc.Create(context.Background(), req, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceGetByControlNumber(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", FirstName: "Ana", LastName: "Alvarez", ControlNumber: "A100"},
	}}
	svc := NewStudentService(repo, &mockEnrollmentRepo{}, &mockPhotoStore{}, &mockCache{}, zap.NewNop())

	student, err := svc.GetByControlNumber(context.Background(), "A100")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)

	_, err = svc.GetByControlNumber(context.Background(), "Z999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateControlNumberTaken(t *testing.T) {
	repo := &mockStudentRepo{taken: map[string]bool{"A100": true}}
	photos := &mockPhotoStore{}
	svc := NewStudentService(repo, &mockEnrollmentRepo{}, photos, &mockCache{}, zap.NewNop())

	req := &models.CreateStudentRequest{FirstName: "Ana", LastName: "Alvarez", ControlNumber: "A100"}
	_, err := svc.Create(context.Background(), req, []byte("png-bytes"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, photos.uploads)
}

func TestStudentServiceCreateInsertFailureUndoesUpload(t *testing.T) {
	repo := &mockStudentRepo{createErr: assert.AnError}
	photos := &mockPhotoStore{}
	svc := NewStudentService(repo, &mockEnrollmentRepo{}, photos, &mockCache{}, zap.NewNop())

	req := &models.CreateStudentRequest{FirstName: "Ana", LastName: "Alvarez", ControlNumber: "A100"}
	_, err := svc.Create(context.Background(), req, []byte("png-bytes"))
	require.Error(t, err)
	assert.Contains(t, photos.initialDeletes, "A100")
}

func TestStudentServiceUpdateControlNumberReKeysPhotos(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", FirstName: "Ana", LastName: "Alvarez", ControlNumber: "A100"},
	}}
	enrollments := &mockEnrollmentRepo{contexts: map[string][]models.EnrollmentPhoto{
		"stu-1": {
			{EnrollmentID: "enr-1", SubjectID: "sub-1", SubjectName: "Mathematics", TeacherName: "Alice Smith"},
			{EnrollmentID: "enr-2", SubjectID: "sub-2", SubjectName: "Physics", TeacherName: "Alice Smith"},
		},
	}}
	photos := &mockPhotoStore{}
	svc := NewStudentService(repo, enrollments, photos, &mockCache{}, zap.NewNop())

	newControl := "B200"
	student, err := svc.Update(context.Background(), "stu-1", &models.UpdateStudentRequest{ControlNumber: &newControl})
	require.NoError(t, err)
	assert.Equal(t, "B200", student.ControlNumber)
	assert.Contains(t, photos.renames, "A100->B200")
	assert.Len(t, photos.copies, 2)
	assert.Len(t, photos.subjectDeletes, 2)
	require.Len(t, repo.updatedRefs, 2)
	assert.Equal(t, "photos/Alice Smith_Mathematics/B200.png", repo.updatedRefs["enr-1"])
	assert.Equal(t, "photos/Alice Smith_Physics/B200.png", repo.updatedRefs["enr-2"])
}

func TestStudentServiceUpdateNamesOnlySkipsPhotoStore(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", FirstName: "Ana", LastName: "Alvarez", ControlNumber: "A100"},
	}}
	photos := &mockPhotoStore{}
	svc := NewStudentService(repo, &mockEnrollmentRepo{}, photos, &mockCache{}, zap.NewNop())

	first := "Anna"
	student, err := svc.Update(context.Background(), "stu-1", &models.UpdateStudentRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Anna", student.FirstName)
	assert.Empty(t, photos.renames)
	assert.Empty(t, photos.copies)
	assert.Empty(t, repo.updatedRefs)
}

func TestStudentServiceUpdateControlNumberTaken(t *testing.T) {
	repo := &mockStudentRepo{
		students: map[string]models.Student{
			"stu-1": {ID: "stu-1", FirstName: "Ana", LastName: "Alvarez", ControlNumber: "A100"},
		},
		taken: map[string]bool{"B200": true},
	}
	photos := &mockPhotoStore{}
	svc := NewStudentService(repo, &mockEnrollmentRepo{}, photos, &mockCache{}, zap.NewNop())

	newControl := "B200"
	_, err := svc.Update(context.Background(), "stu-1", &models.UpdateStudentRequest{ControlNumber: &newControl})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, photos.renames)
}

func TestStudentServiceDeleteCleansUpAssets(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", FirstName: "Ana", LastName: "Alvarez", ControlNumber: "A100"},
	}}
	enrollments := &mockEnrollmentRepo{contexts: map[string][]models.EnrollmentPhoto{
		"stu-1": {{EnrollmentID: "enr-1", SubjectID: "sub-1", SubjectName: "Mathematics", TeacherName: "Alice Smith"}},
	}}
	photos := &mockPhotoStore{}
	cache := &mockCache{}
	svc := NewStudentService(repo, enrollments, photos, cache, zap.NewNop())

	err := svc.Delete(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, "stu-1")
	assert.Len(t, photos.subjectDeletes, 1)
	assert.Contains(t, photos.initialDeletes, "A100")
	assert.Contains(t, cache.invalidated, "sub-1")
}

func TestStudentServiceDeleteMissing(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, &mockEnrollmentRepo{}, &mockPhotoStore{}, &mockCache{}, zap.NewNop())

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
