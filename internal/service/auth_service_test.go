package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

func newAuth(t *testing.T) (*authService, *testEnv) {
	t.Helper()
	env := newTestEnv(t, nil, nil)
	svc := NewAuthService(env.users, "test-secret", time.Hour).(*authService)
	return svc, env
}

func TestSignupAndLogin(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	u, err := auth.Signup(ctx, SignupInput{FullName: " Vandiyathevan ", Email: "Vandhi@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "vandhi@example.com", u.Email)
	assert.Equal(t, "Vandiyathevan", u.FullName)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	_, err = auth.Signup(ctx, SignupInput{FullName: "Other", Email: "vandhi@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = auth.Login(ctx, LoginInput{Email: "vandhi@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	pair, err := auth.Login(ctx, LoginInput{Email: "VANDHI@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	require.NotNil(t, pair.User.LastLogin)

	caller, err := auth.Resolve(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, caller.ID)
	assert.Equal(t, model.RoleUser, caller.Role)
}

func TestSignupValidation(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	cases := []SignupInput{
		{FullName: "A", Email: "a@example.com", Password: "secret1"},
		{FullName: "Arulmozhi", Email: "not-an-email", Password: "secret1"},
		{FullName: "Arulmozhi", Email: "a@example.com", Password: "123"},
	}
	for _, in := range cases {
		_, err := auth.Signup(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "%+v", in)
	}
}

func TestResolveRejectsBadTokens(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()
	_, err := auth.Signup(ctx, SignupInput{FullName: "Kundavai", Email: "k@example.com", Password: "secret1"})
	require.NoError(t, err)
	pair, err := auth.Login(ctx, LoginInput{Email: "k@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = auth.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	other := NewAuthService(auth.users, "another-secret", time.Hour)
	_, err = other.Resolve(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.Resolve(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestResolveUsesCurrentRole(t *testing.T) {
	auth, env := newAuth(t)
	ctx := context.Background()
	u, err := auth.Signup(ctx, SignupInput{FullName: "Nandini", Email: "n@example.com", Password: "secret1"})
	require.NoError(t, err)
	pair, err := auth.Login(ctx, LoginInput{Email: "n@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.User{}).Where("id = ?", u.ID).Update("role", model.RoleEditor).Error)
	caller, err := auth.Resolve(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleEditor, caller.Role)
}
