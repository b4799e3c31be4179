package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/retzius/attendance-api/internal/models"
	"github.com/retzius/attendance-api/internal/repository"
	appErrors "github.com/retzius/attendance-api/pkg/errors"
)

type mockSubjectRepo struct {
	subjects map[string]models.Subject
	created  *models.Subject
	updated  *models.Subject
	deleted  []string
}

func (m *mockSubjectRepo) FindOwned(ctx context.Context, id, teacherID string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok && s.TeacherID == teacherID {
		out := s
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.Subject, error) {
	var list []models.Subject
	for _, s := range m.subjects {
		if s.TeacherID == teacherID {
			list = append(list, s)
		}
	}
	return list, nil
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = "new-subject"
	}
	if m.subjects == nil {
		m.subjects = make(map[string]models.Subject)
	}
	m.subjects[subject.ID] = *subject
	m.created = subject
	return nil
}

func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	m.subjects[subject.ID] = *subject
	m.updated = subject
	return nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id, teacherID string) error {
	delete(m.subjects, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockStudentRepo struct {
	students    map[string]models.Student
	created     *models.Student
	updated     *models.Student
	updatedRefs map[string]string
	deleted     []string
	createErr   error
	updateErr   error
	taken       map[string]bool
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var list []models.Student
	for _, s := range m.students {
		list = append(list, s)
	}
	return list, len(list), nil
}

func (m *mockStudentRepo) FindByControlNumber(ctx context.Context, controlNumber string) (*models.Student, error) {
	for _, s := range m.students {
		if s.ControlNumber == controlNumber {
			out := s
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		out := s
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByControlNumber(ctx context.Context, controlNumber, excludeID string) (bool, error) {
	return m.taken[controlNumber], nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	if student.ID == "" {
		student.ID = "new-student"
	}
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	m.students[student.ID] = *student
	m.created = student
	return nil
}

func (m *mockStudentRepo) UpdateWithEnrollmentPhotos(ctx context.Context, student *models.Student, photoRefs map[string]string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.students[student.ID] = *student
	m.updated = student
	m.updatedRefs = photoRefs
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockEnrollmentRepo struct {
	pairs     map[string]models.Enrollment
	contexts  map[string][]models.EnrollmentPhoto
	roster    []models.RosterEntry
	created   *models.Enrollment
	deleted   []string
	createErr error
}

func pairKey(studentID, subjectID string) string { return studentID + "|" + subjectID }

func (m *mockEnrollmentRepo) FindByPair(ctx context.Context, studentID, subjectID string) (*models.Enrollment, error) {
	if e, ok := m.pairs[pairKey(studentID, subjectID)]; ok {
		out := e
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsByPair(ctx context.Context, studentID, subjectID string) (bool, error) {
	_, ok := m.pairs[pairKey(studentID, subjectID)]
	return ok, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	key := pairKey(enrollment.StudentID, enrollment.SubjectID)
	if _, ok := m.pairs[key]; ok {
		return repository.ErrDuplicatePair
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enrollment"
	}
	if m.pairs == nil {
		m.pairs = make(map[string]models.Enrollment)
	}
	m.pairs[key] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	for key, e := range m.pairs {
		if e.ID == id {
			delete(m.pairs, key)
		}
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockEnrollmentRepo) Roster(ctx context.Context, subjectID string) ([]models.RosterEntry, error) {
	return m.roster, nil
}

func (m *mockEnrollmentRepo) ListPhotoContexts(ctx context.Context, studentID string) ([]models.EnrollmentPhoto, error) {
	return m.contexts[studentID], nil
}

// mockPhotoStore records every asset operation and can fail on demand.
type mockPhotoStore struct {
	uploads        []string
	copies         []string
	subjectDeletes []string
	initialDeletes []string
	renames        []string
	folderRenames  []string
	copyErr        error
	deleteErr      error
}

func (m *mockPhotoStore) UploadInitial(controlNumber string, image []byte) (string, error) {
	m.uploads = append(m.uploads, controlNumber)
	return "photos/" + controlNumber + ".png", nil
}

func (m *mockPhotoStore) CopyToSubjectFolder(controlNumber, teacherName, subjectName string) (string, error) {
	if m.copyErr != nil {
		return "", m.copyErr
	}
	ref := "photos/" + teacherName + "_" + subjectName + "/" + controlNumber + ".png"
	m.copies = append(m.copies, ref)
	return ref, nil
}

func (m *mockPhotoStore) DeleteFromSubject(controlNumber, teacherName, subjectName string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.subjectDeletes = append(m.subjectDeletes, "photos/"+teacherName+"_"+subjectName+"/"+controlNumber+".png")
	return nil
}

func (m *mockPhotoStore) DeleteInitial(controlNumber string) error {
	m.initialDeletes = append(m.initialDeletes, controlNumber)
	return nil
}

func (m *mockPhotoStore) RenameInitial(oldControlNumber, newControlNumber string) (string, error) {
	m.renames = append(m.renames, oldControlNumber+"->"+newControlNumber)
	return "photos/" + newControlNumber + ".png", nil
}

func (m *mockPhotoStore) RenameTeacherFolders(oldTeacherName, newTeacherName string) error {
	m.folderRenames = append(m.folderRenames, oldTeacherName+"->"+newTeacherName)
	return nil
}

type mockCache struct {
	hits        map[string]interface{}
	sets        []string
	invalidated []string
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	if v, ok := m.hits[key]; ok {
		if records, ok := v.([]models.AttendanceRecord); ok {
			if out, ok := dest.(*[]models.AttendanceRecord); ok {
				*out = records
				return nil
			}
		}
	}
	return appErrors.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets = append(m.sets, key)
	return nil
}

func (m *mockCache) InvalidateAttendance(ctx context.Context, subjectID string) error {
	m.invalidated = append(m.invalidated, subjectID)
	return nil
}
