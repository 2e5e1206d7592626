package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeonsu-dev/stagepass/internal/auth"
)

func TestTokenManager(t *testing.T) {
	t.Run("round-trips the principal", func(t *testing.T) {
		m := auth.NewTokenManager("secret", time.Hour)

		token, err := m.Issue(auth.Principal{ID: 7, Username: "yeonsu"})
		require.NoError(t, err)

		p, err := m.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), p.ID)
		assert.Equal(t, "yeonsu", p.Username)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		m := auth.NewTokenManager("secret", -time.Minute)

		token, err := m.Issue(auth.Principal{ID: 7, Username: "yeonsu"})
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		issuer := auth.NewTokenManager("secret-a", time.Hour)
		verifier := auth.NewTokenManager("secret-b", time.Hour)

		token, err := issuer.Issue(auth.Principal{ID: 7, Username: "yeonsu"})
		require.NoError(t, err)

		_, err = verifier.Parse(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		m := auth.NewTokenManager("secret", time.Hour)

		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
