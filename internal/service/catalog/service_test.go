package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeonsu-dev/stagepass/internal/domain"
	"github.com/yeonsu-dev/stagepass/internal/repository/memory"
	"github.com/yeonsu-dev/stagepass/internal/service/catalog"
)

func seedAdmin(t *testing.T, store *memory.Store) int64 {
	t.Helper()

	u, err := store.Users().Create(context.Background(), "admin01", "hash", "admin")
	require.NoError(t, err)
	store.SetAdmin(u.ID, true)
	return u.ID
}

func TestCreateShow(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)

	groups := []domain.SeatGroup{
		{Count: 2, Grade: "VIP", Price: 100_000},
		{Count: 3, Grade: "R", Price: 50_000},
	}

	t.Run("creates one run per time with numbered seats", func(t *testing.T) {
		store := memory.NewStore()
		svc := catalog.New(store, nil, catalog.Config{})
		adminID := seedAdmin(t, store)

		times := []time.Time{future, future.Add(3 * time.Hour)}

		created, err := svc.CreateShow(ctx, adminID, "Hamlet", "a tragedy", groups, times)
		require.NoError(t, err)
		require.Len(t, created, 2)

		for _, show := range created {
			// Capacity comes from the seat groups, not the client.
			assert.Equal(t, 5, show.MaxSeats)

			seats, err := store.Seats().ListByShow(ctx, show.ID)
			require.NoError(t, err)
			require.Len(t, seats, 5)

			for i, seat := range seats {
				assert.Equal(t, i+1, seat.SeatNumber)
			}

			assert.Equal(t, "VIP", seats[0].Grade)
			assert.Equal(t, "VIP", seats[1].Grade)
			assert.Equal(t, int64(100_000), seats[1].Price)
			assert.Equal(t, "R", seats[2].Grade)
			assert.Equal(t, int64(50_000), seats[4].Price)
		}
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		store := memory.NewStore()
		svc := catalog.New(store, nil, catalog.Config{})

		u, err := store.Users().Create(ctx, "user01", "hash", "user")
		require.NoError(t, err)

		_, err = svc.CreateShow(ctx, u.ID, "Hamlet", "a tragedy", groups, []time.Time{future})
		assert.ErrorIs(t, err, catalog.ErrUnauthorized)
	})

	t.Run("unknown requester is rejected", func(t *testing.T) {
		store := memory.NewStore()
		svc := catalog.New(store, nil, catalog.Config{})

		_, err := svc.CreateShow(ctx, 42, "Hamlet", "a tragedy", groups, []time.Time{future})
		assert.ErrorIs(t, err, catalog.ErrUnauthorized)
	})

	t.Run("past show time is rejected", func(t *testing.T) {
		store := memory.NewStore()
		svc := catalog.New(store, nil, catalog.Config{})
		adminID := seedAdmin(t, store)

		past := time.Now().Add(-time.Minute)
		_, err := svc.CreateShow(ctx, adminID, "Hamlet", "a tragedy", groups, []time.Time{future, past})
		assert.ErrorIs(t, err, catalog.ErrInvalidShowTime)

		// Nothing persisted, including the valid time.
		shows, lerr := store.Shows().List(ctx)
		require.NoError(t, lerr)
		assert.Empty(t, shows)
	})

	t.Run("empty seat groups are rejected", func(t *testing.T) {
		store := memory.NewStore()
		svc := catalog.New(store, nil, catalog.Config{})
		adminID := seedAdmin(t, store)

		_, err := svc.CreateShow(ctx, adminID, "Hamlet", "a tragedy", nil, []time.Time{future})
		assert.ErrorIs(t, err, catalog.ErrNoSeatGroups)
	})
}

func TestGetShow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := catalog.New(store, nil, catalog.Config{})

	t.Run("unknown show", func(t *testing.T) {
		_, err := svc.GetShow(ctx, 42)
		assert.ErrorIs(t, err, catalog.ErrShowNotFound)
	})

	t.Run("returns the show", func(t *testing.T) {
		showTime := time.Now().Add(24 * time.Hour)
		id, err := store.Shows().Create(ctx, "Hamlet", "a tragedy", showTime, 5)
		require.NoError(t, err)

		show, err := svc.GetShow(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Hamlet", show.Title)
		assert.Equal(t, 5, show.MaxSeats)
	})
}

func TestSearchShows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := catalog.New(store, nil, catalog.Config{})

	showTime := time.Now().Add(24 * time.Hour)
	_, err := store.Shows().Create(ctx, "Hamlet", "a tragedy", showTime, 5)
	require.NoError(t, err)
	_, err = store.Shows().Create(ctx, "Cats", "a musical", showTime, 5)
	require.NoError(t, err)

	found, err := svc.SearchShows(ctx, "ham")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Hamlet", found[0].Title)

	found, err = svc.SearchShows(ctx, "a ")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
