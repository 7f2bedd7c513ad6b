package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("secret", "credithub", time.Hour)
	token, err := m.GenerateAccessToken("ops-team")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-team", claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager("secret", "credithub", time.Hour)

	t.Run("wrong key", func(t *testing.T) {
		token, err := NewManager("other", "credithub", time.Hour).GenerateAccessToken("admin")
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := NewManager("secret", "someone-else", time.Hour).GenerateAccessToken("admin")
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.EqualError(t, err, "invalid issuer")
	})

	t.Run("expired", func(t *testing.T) {
		token, err := m.GenerateAccessTokenTTL("admin", -time.Minute)
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.Error(t, err)
	})

	t.Run("blank subject", func(t *testing.T) {
		_, err := m.GenerateAccessToken("  ")
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Validate("not-a-token")
		assert.Error(t, err)
	})
}
