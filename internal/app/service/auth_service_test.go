package service

import (
	"testing"
	"time"

	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	byEmail map[string]*model.User
	byID    map[uint]*model.User
	nextID  uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: map[string]*model.User{},
		byID:    map[uint]*model.User{},
	}
}

func (f *fakeUserRepo) Create(user *model.User) error {
	f.nextID++
	user.ID = f.nextID
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Update(user *model.User) error {
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) FindByID(id uint) (*model.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*model.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) ExistsByEmail(email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func newTestAuthService(repo *fakeUserRepo) AuthService {
	return NewAuthService(repo, "auth-test-secret", 15*time.Minute, 7*24*time.Hour)
}

func registerTestUser(t *testing.T, svc AuthService, email, password string) *model.User {
	t.Helper()

	user, tokens, err := svc.Register(email, password, "Test User")
	require.NoError(t, err)
	require.NotNil(t, tokens)
	return user
}

func TestAuthService_Register(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	user := registerTestUser(t, svc, "member@plannery.app", "hunter2hunter2")

	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash, "password must be stored hashed")

	_, _, err := svc.Register("member@plannery.app", "other-password", "Dup")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)
	registerTestUser(t, svc, "member@plannery.app", "hunter2hunter2")

	t.Run("correct password", func(t *testing.T) {
		user, tokens, err := svc.Login("member@plannery.app", "hunter2hunter2")
		require.NoError(t, err)
		require.NotNil(t, tokens)
		assert.Equal(t, "member@plannery.app", user.Email)

		claims, err := util.ValidateToken(tokens.AccessToken, "auth-test-secret")
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login("member@plannery.app", "hunter2hunter3")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login("nobody@plannery.app", "hunter2hunter2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_RefreshTokens(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)
	user := registerTestUser(t, svc, "member@plannery.app", "hunter2hunter2")

	_, tokens, err := svc.Login("member@plannery.app", "hunter2hunter2")
	require.NoError(t, err)

	refreshed, err := svc.RefreshTokens(tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	claims, err := util.ValidateToken(refreshed.AccessToken, "auth-test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.RefreshTokens("not.a.token")
	assert.ErrorIs(t, err, util.ErrInvalidToken)
}
