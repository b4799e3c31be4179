package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appErrors "github.com/retzius/attendance-api/pkg/errors"
)

// PhotoStore is the asset lifecycle contract for student photos. A student
// has one initial photo keyed by control number plus one copy per subject
// they are enrolled in. All operations are idempotent on retry; failures
// surface as ErrAssetStore and abort the enclosing operation.
type PhotoStore interface {
	UploadInitial(controlNumber string, image []byte) (string, error)
	CopyToSubjectFolder(controlNumber, teacherName, subjectName string) (string, error)
	DeleteFromSubject(controlNumber, teacherName, subjectName string) error
	DeleteInitial(controlNumber string) error
	RenameInitial(oldControlNumber, newControlNumber string) (string, error)
	RenameTeacherFolders(oldTeacherName, newTeacherName string) error
}

// LocalPhotoStore keeps photos on disk under a base directory:
//
//	<base>/<control>.png
//	<base>/<teacher>_<subject>/<control>.png
type LocalPhotoStore struct {
	baseDir string
}

// NewLocalPhotoStore ensures the base directory exists and returns a handle.
func NewLocalPhotoStore(baseDir string) (*LocalPhotoStore, error) {
	if baseDir == "" {
		baseDir = "./photos"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create photos directory: %w", err)
	}
	return &LocalPhotoStore{baseDir: baseDir}, nil
}

// UploadInitial stores the student's photo in the shared folder, overwriting
// any previous upload for the same control number.
func (s *LocalPhotoStore) UploadInitial(controlNumber string, image []byte) (string, error) {
	ref := initialRef(controlNumber)
	if err := os.WriteFile(filepath.Join(s.baseDir, ref), image, 0o644); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "upload student photo")
	}
	return ref, nil
}

// CopyToSubjectFolder duplicates the initial photo into the subject folder
// and returns the subject-scoped reference.
func (s *LocalPhotoStore) CopyToSubjectFolder(controlNumber, teacherName, subjectName string) (string, error) {
	source := filepath.Join(s.baseDir, initialRef(controlNumber))
	data, err := os.ReadFile(source)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "read student photo")
	}

	ref := subjectRef(controlNumber, teacherName, subjectName)
	target := filepath.Join(s.baseDir, ref)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "prepare subject folder")
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "copy photo to subject folder")
	}
	return ref, nil
}

// DeleteFromSubject removes the subject-scoped copy. Missing files are not
// an error so retries stay idempotent.
func (s *LocalPhotoStore) DeleteFromSubject(controlNumber, teacherName, subjectName string) error {
	path := filepath.Join(s.baseDir, subjectRef(controlNumber, teacherName, subjectName))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "delete subject photo")
	}
	return nil
}

// DeleteInitial removes the shared photo for a control number.
func (s *LocalPhotoStore) DeleteInitial(controlNumber string) error {
	path := filepath.Join(s.baseDir, initialRef(controlNumber))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "delete student photo")
	}
	return nil
}

// RenameInitial moves the shared photo to a new control number key and
// returns the new reference. Renaming onto the same key is a no-op.
func (s *LocalPhotoStore) RenameInitial(oldControlNumber, newControlNumber string) (string, error) {
	newRef := initialRef(newControlNumber)
	if oldControlNumber == newControlNumber {
		return newRef, nil
	}
	oldPath := filepath.Join(s.baseDir, initialRef(oldControlNumber))
	newPath := filepath.Join(s.baseDir, newRef)
	if err := os.Rename(oldPath, newPath); err != nil {
		if os.IsNotExist(err) {
			return newRef, nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "rename student photo")
	}
	return newRef, nil
}

// RenameTeacherFolders moves every subject folder keyed by the old teacher
// name to the new name, so the folders a profile rename would strand keep
// matching the refs stored on enrollments. Same-name renames are a no-op.
func (s *LocalPhotoStore) RenameTeacherFolders(oldTeacherName, newTeacherName string) error {
	oldPrefix := TeacherFolderPrefix(oldTeacherName)
	newPrefix := TeacherFolderPrefix(newTeacherName)
	if oldPrefix == newPrefix {
		return nil
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "list photo folders")
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), oldPrefix) {
			continue
		}
		renamed := newPrefix + strings.TrimPrefix(entry.Name(), oldPrefix)
		if err := os.Rename(filepath.Join(s.baseDir, entry.Name()), filepath.Join(s.baseDir, renamed)); err != nil {
			return appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "rename subject folder")
		}
	}
	return nil
}

// Open returns a read-only handle for a stored reference.
func (s *LocalPhotoStore) Open(ref string) (*os.File, error) {
	file, err := os.Open(filepath.Join(s.baseDir, filepath.Clean("/"+ref)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAssetStore.Code, appErrors.ErrAssetStore.Status, "open photo")
	}
	return file, nil
}

func initialRef(controlNumber string) string {
	return sanitize(controlNumber) + ".png"
}

// TeacherFolderPrefix returns the folder-name prefix shared by all of a
// teacher's subject folders. Callers rewriting stored refs after a teacher
// rename use it to swap the old prefix for the new one.
func TeacherFolderPrefix(teacherName string) string {
	return sanitize(teacherName) + "_"
}

func subjectRef(controlNumber, teacherName, subjectName string) string {
	folder := TeacherFolderPrefix(teacherName) + sanitize(subjectName)
	return filepath.Join(folder, sanitize(controlNumber)+".png")
}

func sanitize(part string) string {
	part = strings.TrimSpace(part)
	replacer := strings.NewReplacer("/", "-", "\\", "-", "..", "-", " ", "_")
	return replacer.Replace(part)
}
