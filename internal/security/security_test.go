package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := "test-jwt-secret"
	token, err := GenerateAccessToken(secret, "user-1", "sess-1", "device-1", "user", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "device-1", claims.DeviceID)
	assert.Equal(t, "user", claims.Role)
}

func TestParseAccessTokenRejects(t *testing.T) {
	secret := "test-jwt-secret"

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateAccessToken(secret, "user-1", "sess-1", "device-1", "user", time.Minute)
		require.NoError(t, err)
		_, err = ParseAccessToken(token, "a-different-secret")
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := GenerateAccessToken(secret, "user-1", "sess-1", "device-1", "user", -time.Minute)
		require.NoError(t, err)
		_, err = ParseAccessToken(token, secret)
		assert.Error(t, err)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := ParseAccessToken("not.a.jwt", secret)
		assert.Error(t, err)
	})
}

func TestRefreshTokenHash(t *testing.T) {
	token, hash, err := GenerateRefreshToken(64)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, HashRefreshToken(token), hash)

	other, _, err := GenerateRefreshToken(64)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestPasswordHashVerify(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, string(hash), "$argon2id$v=19$")

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$t=3,m=65536,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$t=3,m=65536,p=4$c2FsdA",
	} {
		_, err := VerifyPassword("anything", []byte(encoded))
		assert.Error(t, err, "hash %q should be rejected", encoded)
	}
}

func TestResourceSignature(t *testing.T) {
	secret := "resource-secret"
	sig := SignResource(secret, "art-1", "user-1/img.png")

	assert.True(t, VerifyResource(secret, sig, "art-1", "user-1/img.png"))
	assert.False(t, VerifyResource(secret, sig, "art-2", "user-1/img.png"))
	assert.False(t, VerifyResource("other-secret", sig, "art-1", "user-1/img.png"))
}
