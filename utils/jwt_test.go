package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, claims, err := GenerateToken("k1", 42, "a@example.com", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	got, err := ParseToken("k1", tok)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.UserID)
	assert.Equal(t, claims.ID, got.ID)
}

func TestTokenRejected(t *testing.T) {
	tok, _, err := GenerateToken("k1", 42, "a@example.com", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("other-key", tok)
	assert.Error(t, err)

	expired, _, err := GenerateToken("k1", 42, "a@example.com", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("k1", expired)
	assert.Error(t, err)

	anon, _, err := GenerateToken("k1", 0, "", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("k1", anon)
	assert.Error(t, err)
}

func TestBlacklistInMemory(t *testing.T) {
	assert.False(t, IsTokenBlacklisted("jti-1"))
	BlacklistToken("jti-1", time.Now().Add(time.Minute))
	assert.True(t, IsTokenBlacklisted("jti-1"))

	BlacklistToken("jti-2", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted("jti-2"))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct-horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, BurnPasswordCheck("correct-horse"))
}
