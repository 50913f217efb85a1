package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the tests fast
var testParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", testParams)
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := VerifyPassword("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("x", "$bcrypt$nope")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestJWTRoundTrip(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "1h")
	require.NoError(t, Init())
	assert.Equal(t, time.Hour, TokenTTL)

	id := uuid.New()
	tok, err := CreateJWT(id, "alice")
	require.NoError(t, err)

	claims, err := AuthenticateJWT(tok)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "alice", claims.Name)
	assert.False(t, claims.Admin)
	assert.NotNil(t, claims.ExpiresAt)

	adm, err := CreateAdminJWT()
	require.NoError(t, err)
	claims, err = AuthenticateJWT(adm)
	require.NoError(t, err)
	assert.True(t, claims.Admin)

	_, err = AuthenticateJWT(tok + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensFromAnotherKeyAreRejected(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "never")
	require.NoError(t, Init())
	tok, err := CreateJWT(uuid.New(), "bob")
	require.NoError(t, err)

	require.NoError(t, Init())
	_, err = AuthenticateJWT(tok)
	assert.Error(t, err)
}

func TestBadExpireTime(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "soon")
	assert.Error(t, Init())
}
