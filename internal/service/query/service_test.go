package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeonsu-dev/stagepass/internal/domain"
	"github.com/yeonsu-dev/stagepass/internal/repository/memory"
	"github.com/yeonsu-dev/stagepass/internal/service/query"
	"github.com/yeonsu-dev/stagepass/internal/service/reservation"
)

func seedShowWithSeats(t *testing.T, store *memory.Store, showTime time.Time, seatCount int) (int64, []int64) {
	t.Helper()

	ctx := context.Background()
	showID, err := store.Shows().Create(ctx, "Hamlet", "a tragedy", showTime, seatCount)
	require.NoError(t, err)

	seats := make([]domain.Seat, 0, seatCount)
	for i := 0; i < seatCount; i++ {
		seats = append(seats, domain.Seat{
			ShowID:     showID,
			SeatNumber: i + 1,
			Grade:      "R",
			Price:      50_000,
		})
	}
	require.NoError(t, store.Seats().BulkCreate(ctx, seats))

	created, err := store.Seats().ListByShow(ctx, showID)
	require.NoError(t, err)

	ids := make([]int64, 0, len(created))
	for _, s := range created {
		ids = append(ids, s.ID)
	}
	return showID, ids
}

func reserve(t *testing.T, store *memory.Store, seatIDs []int64) (int64, int64) {
	t.Helper()

	ctx := context.Background()
	u, err := store.Users().Create(ctx, "user01", "hash", "user")
	require.NoError(t, err)
	require.NoError(t, store.Ledger().Append(ctx, u.ID, 1_000_000, "signup bonus", nil))

	svc := reservation.New(store, nil, nil, nil, reservation.Config{})
	res, err := svc.ReserveSeats(ctx, u.ID, seatIDs, "")
	require.NoError(t, err)
	return u.ID, res.ID
}

func TestShowDetail(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)

	t.Run("unknown show", func(t *testing.T) {
		store := memory.NewStore()
		svc := query.New(store)

		_, err := svc.ShowDetail(ctx, 42)
		assert.ErrorIs(t, err, query.ErrShowNotFound)
	})

	t.Run("remaining seats track occupancy", func(t *testing.T) {
		store := memory.NewStore()
		svc := query.New(store)

		showID, seatIDs := seedShowWithSeats(t, store, future, 5)

		detail, err := svc.ShowDetail(ctx, showID)
		require.NoError(t, err)
		assert.Equal(t, 5, detail.RemainingSeats)
		assert.True(t, detail.IsBookable)

		userID, resID := reserve(t, store, seatIDs[:2])

		detail, err = svc.ShowDetail(ctx, showID)
		require.NoError(t, err)
		assert.Equal(t, 3, detail.RemainingSeats)
		assert.True(t, detail.IsBookable)

		// Cancellation frees the seats again.
		rsvc := reservation.New(store, nil, nil, nil, reservation.Config{})
		require.NoError(t, rsvc.CancelReservation(ctx, userID, resID))

		detail, err = svc.ShowDetail(ctx, showID)
		require.NoError(t, err)
		assert.Equal(t, 5, detail.RemainingSeats)
	})

	t.Run("sold out show is not bookable", func(t *testing.T) {
		store := memory.NewStore()
		svc := query.New(store)

		showID, seatIDs := seedShowWithSeats(t, store, future, 2)
		reserve(t, store, seatIDs)

		detail, err := svc.ShowDetail(ctx, showID)
		require.NoError(t, err)
		assert.Zero(t, detail.RemainingSeats)
		assert.False(t, detail.IsBookable)
	})

	t.Run("started show is not bookable", func(t *testing.T) {
		store := memory.NewStore()
		svc := query.New(store)

		showID, _ := seedShowWithSeats(t, store, time.Now().Add(-time.Hour), 5)

		detail, err := svc.ShowDetail(ctx, showID)
		require.NoError(t, err)
		assert.Equal(t, 5, detail.RemainingSeats)
		assert.False(t, detail.IsBookable)
	})
}

func TestShowSeats(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)

	t.Run("unknown show", func(t *testing.T) {
		store := memory.NewStore()
		svc := query.New(store)

		_, err := svc.ShowSeats(ctx, 42)
		assert.ErrorIs(t, err, query.ErrShowNotFound)
	})

	t.Run("flags reserved seats", func(t *testing.T) {
		store := memory.NewStore()
		svc := query.New(store)

		showID, seatIDs := seedShowWithSeats(t, store, future, 3)
		reserve(t, store, seatIDs[:1])

		seats, err := svc.ShowSeats(ctx, showID)
		require.NoError(t, err)
		require.Len(t, seats, 3)

		assert.True(t, seats[0].IsReserved)
		assert.False(t, seats[1].IsReserved)
		assert.False(t, seats[2].IsReserved)
	})
}
