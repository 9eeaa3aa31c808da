package database

import (
	"context"
	"testing"
	"time"

	"github.com/jason-s-yu/guandan/internal/auth"
	"github.com/jason-s-yu/guandan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDSN(t *testing.T) {
	o := Options{User: "gd", Password: "p@ss", Host: "db", Port: "5432", Database: "guandan"}
	assert.Equal(t, "postgres://gd:p%40ss@db:5432/guandan", o.DSN())
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUsers()

	u := &models.User{Username: "Alice", Password: "secret"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEqual(t, "secret", u.Password)
	assert.False(t, u.CreatedAt.IsZero())

	err := s.CreateUser(ctx, &models.User{Username: "alice", Password: "x"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	got, err := s.GetUserByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username)

	_, err = s.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticate(t *testing.T) {
	require.NoError(t, auth.Init(time.Hour))
	ctx := context.Background()
	s := NewMemoryUsers()
	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "bob", Password: "pw"}))

	user, token, err := Authenticate(ctx, s, "bob", "pw")
	require.NoError(t, err)
	id, err := auth.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, _, err = Authenticate(ctx, s, "bob", "wrong")
	assert.ErrorIs(t, err, auth.ErrAuthenticationFailed)
	_, _, err = Authenticate(ctx, s, "nobody", "pw")
	assert.ErrorIs(t, err, auth.ErrAuthenticationFailed)
}
