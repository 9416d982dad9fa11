package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/presensia/presensia-api/internal/models"
	appErrors "github.com/presensia/presensia-api/pkg/errors"
)

type fakeUserRepo struct {
	user          *models.User
	findErr       error
	lastLoginSet  bool
	lastLoginErr  error
	lastLoginUser string
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, _ string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.user, nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, _ time.Time) error {
	if f.lastLoginErr != nil {
		return f.lastLoginErr
	}
	f.lastLoginSet = true
	f.lastLoginUser = id
	return nil
}

func authTestUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "teacher@example.com",
		PasswordHash: string(hash),
		FullName:     "R. Iyer",
		Role:         models.RoleTeacher,
		Active:       true,
	}
}

func newAuthService(repo *fakeUserRepo) *AuthService {
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "presensia",
	})
}

func TestLoginSuccess(t *testing.T) {
	repo := &fakeUserRepo{user: authTestUser(t, "s3cret")}
	svc := newAuthService(repo)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "user-1", result.User.ID)
	assert.True(t, repo.lastLoginSet)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &fakeUserRepo{user: authTestUser(t, "s3cret")}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := &fakeUserRepo{findErr: sql.ErrNoRows}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "s3cret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := authTestUser(t, "s3cret")
	user.Active = false
	svc := newAuthService(&fakeUserRepo{user: user})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "s3cret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestLoginValidatesPayload(t *testing.T) {
	svc := newAuthService(&fakeUserRepo{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginSucceedsWhenLastLoginWriteFails(t *testing.T) {
	repo := &fakeUserRepo{user: authTestUser(t, "s3cret"), lastLoginErr: errors.New("connection refused")}
	svc := newAuthService(repo)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "s3cret"})
	require.NoError(t, err, "last-login bookkeeping is best effort")
	assert.NotEmpty(t, result.AccessToken)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	repo := &fakeUserRepo{user: authTestUser(t, "s3cret")}
	svc := newAuthService(repo)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "s3cret"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "presensia", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	repo := &fakeUserRepo{user: authTestUser(t, "s3cret")}
	issuer := newAuthService(repo)
	result, err := issuer.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "s3cret"})
	require.NoError(t, err)

	verifier := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{Secret: "other-secret", Expiration: time.Hour})
	_, err = verifier.ValidateToken(result.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newAuthService(&fakeUserRepo{})

	_, err := svc.ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
