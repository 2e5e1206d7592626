package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeonsu-dev/stagepass/internal/auth"
	"github.com/yeonsu-dev/stagepass/internal/repository/memory"
	"github.com/yeonsu-dev/stagepass/internal/service/users"
)

func newService(store *memory.Store, bonus int64) (*users.Service, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return users.New(store, tokens, users.Config{SignupBonus: bonus}), tokens
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the user and credits the signup bonus", func(t *testing.T) {
		store := memory.NewStore()
		svc, tokens := newService(store, 1_000_000)

		token, err := svc.Register(ctx, "yeonsu01", "password123", "yeonsu")
		require.NoError(t, err)

		p, err := tokens.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "yeonsu", p.Username)

		balance, err := store.Ledger().Balance(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000), balance)
	})

	t.Run("duplicate login id", func(t *testing.T) {
		store := memory.NewStore()
		svc, _ := newService(store, 0)

		_, err := svc.Register(ctx, "yeonsu01", "password123", "yeonsu")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "yeonsu01", "password456", "other")
		assert.ErrorIs(t, err, users.ErrDuplicatedIDOrUsername)
	})

	t.Run("duplicate username", func(t *testing.T) {
		store := memory.NewStore()
		svc, _ := newService(store, 0)

		_, err := svc.Register(ctx, "yeonsu01", "password123", "yeonsu")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "other01", "password456", "yeonsu")
		assert.ErrorIs(t, err, users.ErrDuplicatedIDOrUsername)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	store := memory.NewStore()
	svc, tokens := newService(store, 0)

	_, err := svc.Register(ctx, "yeonsu01", "password123", "yeonsu")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		token, err := svc.Login(ctx, "yeonsu01", "password123")
		require.NoError(t, err)

		p, err := tokens.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "yeonsu", p.Username)
	})

	t.Run("unknown login id", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody01", "password123")
		assert.ErrorIs(t, err, users.ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "yeonsu01", "wrongpassword")
		assert.ErrorIs(t, err, users.ErrPasswordNotMatch)
	})
}

func TestProfile(t *testing.T) {
	ctx := context.Background()

	store := memory.NewStore()
	svc, tokens := newService(store, 1_000_000)

	token, err := svc.Register(ctx, "yeonsu01", "password123", "yeonsu")
	require.NoError(t, err)

	p, err := tokens.Parse(token)
	require.NoError(t, err)

	t.Run("returns the balance from the ledger", func(t *testing.T) {
		profile, err := svc.Profile(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "yeonsu01", profile.LoginID)
		assert.Equal(t, "yeonsu", profile.Username)
		assert.Equal(t, int64(1_000_000), profile.Point)

		require.NoError(t, store.Ledger().Append(ctx, p.ID, -50_000, "show reservation", nil))

		profile, err = svc.Profile(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(950_000), profile.Point)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Profile(ctx, 42)
		assert.ErrorIs(t, err, users.ErrUserNotFound)
	})
}
