package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	beacon := NewTokenManager("shared", "beacon", 5)
	codex := NewTokenManager("shared", "codex", 5)

	token, expires, err := beacon.GenerateToken("codex")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expires, 5*time.Second)

	claims, err := codex.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "beacon", claims.CallingService)
	assert.Equal(t, "codex", claims.TargetService)
}

func TestServiceTokenRejections(t *testing.T) {
	beacon := NewTokenManager("shared", "beacon", 5)

	t.Run("wrong audience", func(t *testing.T) {
		token, _, err := beacon.GenerateToken("codex")
		require.NoError(t, err)
		_, err = NewTokenManager("shared", "other", 5).ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := beacon.GenerateToken("codex")
		require.NoError(t, err)
		_, err = NewTokenManager("different", "codex", 5).ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		issuer := NewTokenManager("shared", "beacon", 1)
		issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := issuer.GenerateToken("codex")
		require.NoError(t, err)
		_, err = NewTokenManager("shared", "codex", 5).ParseToken(token)
		assert.Error(t, err)
	})
}
