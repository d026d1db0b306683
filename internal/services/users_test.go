package services

import (
	"errors"
	"testing"

	"newsboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.admin.User.IsAdmin(), "first account is admin")

	u, err := f.board.Accounts.Create(f.ctx, "Alice", "password123", "198.51.100.1")
	require.NoError(t, err)
	assert.False(t, u.IsAdmin())
	assert.Equal(t, DefaultSettings().UserInitialKarma, u.Karma)
	assert.NotEqual(t, "password123", u.Password)
	assert.Len(t, u.Auth, 32)

	byName, err := f.board.Accounts.ByUsername(f.ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, u.ID, byName.ID)

	byAuth, err := f.board.Accounts.ByAuth(f.ctx, u.Auth)
	require.NoError(t, err)
	require.NotNil(t, byAuth)
	assert.Equal(t, u.ID, byAuth.ID)
}

func TestCreateAccountRejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.board.Accounts.Create(f.ctx, "", "password123", "198.51.100.1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.board.Accounts.Create(f.ctx, "two words", "password123", "198.51.100.1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.board.Accounts.Create(f.ctx, "bob", "short", "198.51.100.1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.board.Accounts.Create(f.ctx, "ROOT", "password123", "198.51.100.1")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.board.Accounts.Create(f.ctx, "bob", "password123", "198.51.100.1")
	require.NoError(t, err)
	_, err = f.board.Accounts.Create(f.ctx, "carol", "password123", "198.51.100.1")
	require.ErrorIs(t, err, ErrRateLimited)
	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, DefaultSettings().SignupThrottle, rl.RetryAfter)
}

func TestCheckCredentials(t *testing.T) {
	f := newFixture(t)
	v := f.user(t, "alice", 1)

	u, err := f.board.Accounts.CheckCredentials(f.ctx, "ALICE", "password123")
	require.NoError(t, err)
	assert.Equal(t, v.User.ID, u.ID)

	_, err = f.board.Accounts.CheckCredentials(f.ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = f.board.Accounts.CheckCredentials(f.ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestRotateAuthToken(t *testing.T) {
	f := newFixture(t)
	v := f.user(t, "alice", 1)
	old := v.User.Auth

	token, err := f.board.Accounts.RotateAuthToken(f.ctx, v)
	require.NoError(t, err)
	assert.NotEqual(t, old, token)

	u, err := f.board.Accounts.ByAuth(f.ctx, old)
	require.NoError(t, err)
	assert.Nil(t, u)
	u, err = f.board.Accounts.ByAuth(f.ctx, token)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, v.User.ID, u.ID)

	_, err = f.board.Accounts.RotateAuthToken(f.ctx, &models.Viewer{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAddFlags(t *testing.T) {
	f := newFixture(t)
	v := f.user(t, "alice", 1)

	require.NoError(t, f.board.Accounts.AddFlags(f.ctx, v.User.ID, models.FlagKarmaSource))
	require.NoError(t, f.board.Accounts.AddFlags(f.ctx, v.User.ID, models.FlagKarmaSource+models.FlagAdmin))
	u := f.reload(t, v).User
	assert.Equal(t, "ka", u.Flags)
	assert.True(t, u.IsAdmin())
	assert.True(t, u.HasFlags("ak"))
	assert.False(t, f.admin.User.HasFlags("k"))

	assert.ErrorIs(t, f.board.Accounts.AddFlags(f.ctx, 999, models.FlagAdmin), ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	v := f.user(t, "alice", 1)

	require.NoError(t, f.board.Accounts.UpdateProfile(f.ctx, v, "hello", " a@example.com ", ""))
	u := f.reload(t, v).User
	assert.Equal(t, "hello", u.About)
	assert.Equal(t, "a@example.com", u.Email)

	assert.ErrorIs(t, f.board.Accounts.UpdateProfile(f.ctx, v, "", "", "short"), ErrInvalidInput)
	require.NoError(t, f.board.Accounts.UpdateProfile(f.ctx, v, "", "", "new-password"))
	_, err := f.board.Accounts.CheckCredentials(f.ctx, "alice", "new-password")
	assert.NoError(t, err)
}
