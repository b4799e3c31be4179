package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/retzius/attendance-api/internal/models"
	appErrors "github.com/retzius/attendance-api/pkg/errors"
)

type mockUserRepo struct {
	users    map[string]models.User
	created  *models.User
	deleted  []string
	password string
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		out := u
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "new-user"
	}
	if m.users == nil {
		m.users = make(map[string]models.User)
	}
	m.users[user.ID] = *user
	m.created = user
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, fullName, username string) error {
	if u, ok := m.users[id]; ok {
		u.FullName = fullName
		u.Username = username
		m.users[id] = u
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.password = passwordHash
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		m.users[id] = u
	}
	return nil
}

func (m *mockUserRepo) DeleteByUsername(ctx context.Context, username string) (bool, error) {
	for id, u := range m.users {
		if u.Username == username {
			delete(m.users, id)
			m.deleted = append(m.deleted, username)
			return true, nil
		}
	}
	return false, nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "attendance-api"}
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Alice Smith",
		Username: "asmith",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "asmith", user.Username)
	require.NotNil(t, repo.created)
	assert.NotEqual(t, "secret123", repo.created.PasswordHash)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "asmith", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "asmith", res.User.Username)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, repo.created.ID, claims.UserID)
	assert.Equal(t, "Alice Smith", claims.FullName)
}

func TestAuthServiceRegisterUsernameTaken(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Username: "asmith"},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Alice Smith",
		Username: "asmith",
		Password: "secret123",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Username: "asmith", PasswordHash: hashOf(t, "secret123")},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "asmith", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "secret123"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Username: "asmith", PasswordHash: hashOf(t, "secret123")},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		CurrentPassword: "secret123",
		NewPassword:     "rotated456",
		ConfirmPassword: "rotated456",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.password)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "asmith", Password: "rotated456"})
	require.NoError(t, err)
}

func TestAuthServiceChangePasswordMismatch(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Username: "asmith", PasswordHash: hashOf(t, "secret123")},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		CurrentPassword: "secret123",
		NewPassword:     "rotated456",
		ConfirmPassword: "different",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

type mockPhotoRekeyer struct {
	calls []string
}

func (m *mockPhotoRekeyer) RekeyTeacherPhotoRefs(ctx context.Context, teacherID, oldPrefix, newPrefix string) error {
	m.calls = append(m.calls, teacherID+":"+oldPrefix+"->"+newPrefix)
	return nil
}

func TestAuthServiceUpdateProfileRekeysPhotoFolders(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", FullName: "Ana Alvarez", Username: "aalvarez"},
	}}
	photos := &mockPhotoStore{}
	rekeyer := &mockPhotoRekeyer{}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig()).WithPhotoRekeying(photos, rekeyer)

	info, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{FullName: "Ana Baker"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Baker", info.FullName)
	assert.Contains(t, photos.folderRenames, "Ana Alvarez->Ana Baker")
	assert.Contains(t, rekeyer.calls, "u1:Ana_Alvarez_->Ana_Baker_")
	assert.Equal(t, "Ana Baker", repo.users["u1"].FullName)
}

func TestAuthServiceUpdateProfileUsernameOnlyLeavesPhotosAlone(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", FullName: "Ana Alvarez", Username: "aalvarez"},
	}}
	photos := &mockPhotoStore{}
	rekeyer := &mockPhotoRekeyer{}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig()).WithPhotoRekeying(photos, rekeyer)

	info, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{Username: "abaker"})
	require.NoError(t, err)
	assert.Equal(t, "abaker", info.Username)
	assert.Empty(t, photos.folderRenames)
	assert.Empty(t, rekeyer.calls)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}

func TestAuthServiceDeleteAccount(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Username: "asmith"},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	err := svc.DeleteAccount(context.Background(), "asmith")
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, "asmith")

	err = svc.DeleteAccount(context.Background(), "asmith")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
