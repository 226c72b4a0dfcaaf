package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticketing-service/internal/bucketing"
	"ticketing-service/internal/hashing"
	"ticketing-service/internal/token"
)

func newAuthService(repo *fakeUserRepo) *AuthService {
	return NewAuthService(
		repo,
		hashing.NewHasher(),
		token.NewManager("test-secret-at-least-32-bytes-long!!", time.Hour),
		bucketing.NewManager(0),
		zap.NewNop(),
	)
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, &RegisterRequest{
		Name:     "Asha Rao",
		Email:    "Asha@Example.com",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "asha@example.com", result.User.Email)
	assert.NotEmpty(t, result.User.PasswordHash)
	assert.NotEqual(t, "correct horse battery staple", result.User.PasswordHash)

	login, err := svc.Login(ctx, &LoginRequest{
		Email:    "asha@example.com",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.Equal(t, result.User.UserID, login.User.UserID)
	assert.NotEmpty(t, login.Token)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	ctx := context.Background()

	req := &RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "pw-one-two-three"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Email: "a@b.c", Password: "pw"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, &RegisterRequest{Name: "A", Email: "not-an-email", Password: "pw"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "pw-one-two-three"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, &LoginRequest{Email: "asha@example.com", Password: "nope"})
	_, unknownEmail := svc.Login(ctx, &LoginRequest{Email: "ghost@example.com", Password: "nope"})

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}
