package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/retzius/attendance-api/pkg/errors"
)

func newTestStore(t *testing.T) *LocalPhotoStore {
	t.Helper()
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLocalPhotoStoreUploadAndOpen(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.UploadInitial("A100", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "A100.png", ref)

	file, err := store.Open(ref)
	require.NoError(t, err)
	defer file.Close()

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), content)
}

func TestLocalPhotoStoreCopyToSubjectFolder(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UploadInitial("A100", []byte("png-bytes"))
	require.NoError(t, err)

	ref, err := store.CopyToSubjectFolder("A100", "Alice Smith", "Mathematics")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("Alice_Smith_Mathematics", "A100.png"), ref)

	file, err := store.Open(ref)
	require.NoError(t, err)
	defer file.Close()

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), content)
}

func TestLocalPhotoStoreCopyMissingInitial(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CopyToSubjectFolder("GHOST", "Alice Smith", "Mathematics")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAssetStore.Code, appErr.Code)
}

func TestLocalPhotoStoreRenameInitial(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UploadInitial("A100", []byte("png-bytes"))
	require.NoError(t, err)

	ref, err := store.RenameInitial("A100", "B200")
	require.NoError(t, err)
	assert.Equal(t, "B200.png", ref)

	_, err = store.Open("A100.png")
	assert.Error(t, err)

	file, err := store.Open(ref)
	require.NoError(t, err)
	file.Close()
}

func TestLocalPhotoStoreRenameSameKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UploadInitial("A100", []byte("png-bytes"))
	require.NoError(t, err)

	ref, err := store.RenameInitial("A100", "A100")
	require.NoError(t, err)
	assert.Equal(t, "A100.png", ref)

	file, err := store.Open(ref)
	require.NoError(t, err)
	file.Close()
}

func TestLocalPhotoStoreRenameTeacherFolders(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UploadInitial("A100", []byte("png-bytes"))
	require.NoError(t, err)
	_, err = store.CopyToSubjectFolder("A100", "Alice Smith", "Mathematics")
	require.NoError(t, err)
	_, err = store.CopyToSubjectFolder("A100", "Alice Smith", "History")
	require.NoError(t, err)
	_, err = store.CopyToSubjectFolder("A100", "Bob Jones", "Mathematics")
	require.NoError(t, err)

	require.NoError(t, store.RenameTeacherFolders("Alice Smith", "Alice Baker"))

	for _, subject := range []string{"Mathematics", "History"} {
		file, err := store.Open(filepath.Join("Alice_Baker_"+subject, "A100.png"))
		require.NoError(t, err)
		file.Close()

		_, err = store.Open(filepath.Join("Alice_Smith_"+subject, "A100.png"))
		assert.Error(t, err)
	}

	file, err := store.Open(filepath.Join("Bob_Jones_Mathematics", "A100.png"))
	require.NoError(t, err)
	file.Close()
}

func TestLocalPhotoStoreRenameTeacherFoldersSameName(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UploadInitial("A100", []byte("png-bytes"))
	require.NoError(t, err)
	_, err = store.CopyToSubjectFolder("A100", "Alice Smith", "Mathematics")
	require.NoError(t, err)

	require.NoError(t, store.RenameTeacherFolders("Alice Smith", "Alice Smith"))

	file, err := store.Open(filepath.Join("Alice_Smith_Mathematics", "A100.png"))
	require.NoError(t, err)
	file.Close()
}

func TestLocalPhotoStoreDeleteIdempotent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UploadInitial("A100", []byte("png-bytes"))
	require.NoError(t, err)
	_, err = store.CopyToSubjectFolder("A100", "Alice Smith", "Mathematics")
	require.NoError(t, err)

	require.NoError(t, store.DeleteFromSubject("A100", "Alice Smith", "Mathematics"))
	require.NoError(t, store.DeleteFromSubject("A100", "Alice Smith", "Mathematics"))

	require.NoError(t, store.DeleteInitial("A100"))
	require.NoError(t, store.DeleteInitial("A100"))
}

func TestLocalPhotoStoreOpenStaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalPhotoStore(filepath.Join(dir, "photos"))
	require.NoError(t, err)

	secret := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("nope"), 0o644))

	_, err = store.Open("../secret.txt")
	assert.Error(t, err)
}
