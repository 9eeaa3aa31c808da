package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndVerifyPassword(t *testing.T) {
	enc, err := HashPassword("hunter2", fastParams)
	require.NoError(t, err)

	ok, err := VerifyPassword("hunter2", enc)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("hunter3", enc)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("x", "not-a-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestJWTRoundTrip(t *testing.T) {
	require.NoError(t, Init(time.Hour))
	id := uuid.New()

	tok, err := CreateJWT(id)
	require.NoError(t, err)
	got, err := AuthenticateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = AuthenticateJWT(tok + "x")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, err = AuthenticateJWT("")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestTokenSignedByOtherKeyRejected(t *testing.T) {
	require.NoError(t, Init(0))
	tok, err := CreateJWT(uuid.New())
	require.NoError(t, err)

	require.NoError(t, Init(0))
	_, err = AuthenticateJWT(tok)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestParseTTL(t *testing.T) {
	d, err := ParseTTL("never")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = ParseTTL("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	_, err = ParseTTL("soon")
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	assert.Equal(t, "q", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "q", TokenFromRequest(r), "query wins over header")

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "c"})
	assert.Equal(t, "c", TokenFromRequest(r))
}
