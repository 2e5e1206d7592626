package reservation_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeonsu-dev/stagepass/internal/domain"
	"github.com/yeonsu-dev/stagepass/internal/repository/memory"
	"github.com/yeonsu-dev/stagepass/internal/service/reservation"
)

type recordingNotifier struct {
	mu      sync.Mutex
	showIDs []int64
}

func (n *recordingNotifier) ShowChanged(_ context.Context, showID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.showIDs = append(n.showIDs, showID)
}

func newService(store *memory.Store) *reservation.Service {
	return reservation.New(store, nil, nil, nil, reservation.Config{})
}

var userSeq atomic.Int64

func seedUser(t *testing.T, store *memory.Store, balance int64) int64 {
	t.Helper()

	n := userSeq.Add(1)
	ctx := context.Background()
	u, err := store.Users().Create(ctx, fmt.Sprintf("user%d", n), "hash", fmt.Sprintf("name%d", n))
	require.NoError(t, err)

	if balance != 0 {
		require.NoError(t, store.Ledger().Append(ctx, u.ID, balance, "signup bonus", nil))
	}

	return u.ID
}

func seedShow(t *testing.T, store *memory.Store, showTime time.Time, prices ...int64) (int64, []int64) {
	t.Helper()

	ctx := context.Background()
	showID, err := store.Shows().Create(ctx, "Test Show", "desc", showTime, len(prices))
	require.NoError(t, err)

	seats := make([]domain.Seat, 0, len(prices))
	for i, p := range prices {
		seats = append(seats, domain.Seat{
			ShowID:     showID,
			SeatNumber: i + 1,
			Grade:      "R",
			Price:      p,
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

func TestReserveSeats(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)

	t.Run("reserves seats and debits the total price", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		userID := seedUser(t, store, 1_000_000)
		showID, seatIDs := seedShow(t, store, future, 50_000, 30_000)

		res, err := svc.ReserveSeats(ctx, userID, seatIDs, "")
		require.NoError(t, err)
		assert.Equal(t, userID, res.UserID)
		assert.Equal(t, showID, res.ShowID)

		balance, err := store.Ledger().Balance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000-80_000), balance)

		occupied, err := store.Occupancy().CountOccupied(ctx, seatIDs)
		require.NoError(t, err)
		assert.Equal(t, len(seatIDs), occupied)
	})

	t.Run("unknown seat id fails before any other check", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		// Zero balance: if existence were checked after balance this
		// would surface ErrNotEnoughPoint instead.
		userID := seedUser(t, store, 0)
		_, seatIDs := seedShow(t, store, future, 50_000)

		_, err := svc.ReserveSeats(ctx, userID, append(seatIDs, 9999), "")
		assert.ErrorIs(t, err, reservation.ErrSeatNotFound)
	})

	t.Run("empty seat list is seat not found", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		userID := seedUser(t, store, 1_000_000)

		_, err := svc.ReserveSeats(ctx, userID, nil, "")
		assert.ErrorIs(t, err, reservation.ErrSeatNotFound)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		userID := seedUser(t, store, 10_000)
		_, seatIDs := seedShow(t, store, future, 50_000)

		_, err := svc.ReserveSeats(ctx, userID, seatIDs, "")
		assert.ErrorIs(t, err, reservation.ErrNotEnoughPoint)
	})

	t.Run("occupied seat beats the same-show check", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		alice := seedUser(t, store, 1_000_000)
		bob := seedUser(t, store, 1_000_000)
		_, seatsA := seedShow(t, store, future, 50_000)
		_, seatsB := seedShow(t, store, future, 50_000)

		_, err := svc.ReserveSeats(ctx, alice, seatsA, "")
		require.NoError(t, err)

		// Mixed shows AND an occupied seat: occupancy is checked first.
		_, err = svc.ReserveSeats(ctx, bob, []int64{seatsA[0], seatsB[0]}, "")
		assert.ErrorIs(t, err, reservation.ErrSeatAlreadyReserved)
	})

	t.Run("seats from different shows", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		userID := seedUser(t, store, 1_000_000)
		_, seatsA := seedShow(t, store, future, 50_000)
		_, seatsB := seedShow(t, store, future, 50_000)

		_, err := svc.ReserveSeats(ctx, userID, []int64{seatsA[0], seatsB[0]}, "")
		assert.ErrorIs(t, err, reservation.ErrSeatNotInSameShow)
	})

	t.Run("show already started", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		userID := seedUser(t, store, 1_000_000)
		_, seatIDs := seedShow(t, store, time.Now().Add(-time.Hour), 50_000)

		_, err := svc.ReserveSeats(ctx, userID, seatIDs, "")
		assert.ErrorIs(t, err, reservation.ErrShowAlreadyStarted)
	})

	t.Run("failed reservation leaves no trace", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		userID := seedUser(t, store, 10_000)
		_, seatIDs := seedShow(t, store, future, 50_000)

		_, err := svc.ReserveSeats(ctx, userID, seatIDs, "")
		require.Error(t, err)

		balance, err := store.Ledger().Balance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(10_000), balance)

		occupied, err := store.Occupancy().CountOccupied(ctx, seatIDs)
		require.NoError(t, err)
		assert.Zero(t, occupied)

		list, err := store.Reservations().ListByUser(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("notifies after a successful reservation", func(t *testing.T) {
		store := memory.NewStore()
		notifier := &recordingNotifier{}
		svc := reservation.New(store, notifier, nil, nil, reservation.Config{})

		userID := seedUser(t, store, 1_000_000)
		showID, seatIDs := seedShow(t, store, future, 50_000)

		_, err := svc.ReserveSeats(ctx, userID, seatIDs, "")
		require.NoError(t, err)
		assert.Equal(t, []int64{showID}, notifier.showIDs)
	})

	t.Run("concurrent requests for one seat produce one winner", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		_, seatIDs := seedShow(t, store, future, 50_000)

		const workers = 16
		userIDs := make([]int64, workers)
		for i := range userIDs {
			userIDs[i] = seedUser(t, store, 1_000_000)
		}

		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.ReserveSeats(ctx, userIDs[i], seatIDs, "")
			}(i)
		}
		wg.Wait()

		var wins, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, reservation.ErrSeatAlreadyReserved):
				conflicts++
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, workers-1, conflicts)

		occupied, err := store.Occupancy().CountOccupied(ctx, seatIDs)
		require.NoError(t, err)
		assert.Equal(t, 1, occupied)
	})
}

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)

	t.Run("refunds the spent points and frees the seats", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		userID := seedUser(t, store, 1_000_000)
		_, seatIDs := seedShow(t, store, future, 50_000, 30_000)

		res, err := svc.ReserveSeats(ctx, userID, seatIDs, "")
		require.NoError(t, err)

		require.NoError(t, svc.CancelReservation(ctx, userID, res.ID))

		balance, err := store.Ledger().Balance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000), balance)

		occupied, err := store.Occupancy().CountOccupied(ctx, seatIDs)
		require.NoError(t, err)
		assert.Zero(t, occupied)

		list, err := store.Reservations().ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].IsCanceled)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		userID := seedUser(t, store, 1_000_000)

		err := svc.CancelReservation(ctx, userID, 42)
		assert.ErrorIs(t, err, reservation.ErrReservationNotFound)
	})

	t.Run("second cancel fails and changes nothing", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		userID := seedUser(t, store, 1_000_000)
		_, seatIDs := seedShow(t, store, future, 50_000)

		res, err := svc.ReserveSeats(ctx, userID, seatIDs, "")
		require.NoError(t, err)
		require.NoError(t, svc.CancelReservation(ctx, userID, res.ID))

		err = svc.CancelReservation(ctx, userID, res.ID)
		assert.ErrorIs(t, err, reservation.ErrReservationAlreadyCanceled)

		// No double refund.
		balance, err := store.Ledger().Balance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000), balance)
	})

	t.Run("someone else's reservation", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		alice := seedUser(t, store, 1_000_000)
		bob := seedUser(t, store, 1_000_000)
		_, seatIDs := seedShow(t, store, future, 50_000)

		res, err := svc.ReserveSeats(ctx, alice, seatIDs, "")
		require.NoError(t, err)

		err = svc.CancelReservation(ctx, bob, res.ID)
		assert.ErrorIs(t, err, reservation.ErrNotAuthorized)
	})

	t.Run("already-canceled wins over not-authorized", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		alice := seedUser(t, store, 1_000_000)
		bob := seedUser(t, store, 1_000_000)
		_, seatIDs := seedShow(t, store, future, 50_000)

		res, err := svc.ReserveSeats(ctx, alice, seatIDs, "")
		require.NoError(t, err)
		require.NoError(t, svc.CancelReservation(ctx, alice, res.ID))

		err = svc.CancelReservation(ctx, bob, res.ID)
		assert.ErrorIs(t, err, reservation.ErrReservationAlreadyCanceled)
	})

	t.Run("canceled seats can be reserved again", func(t *testing.T) {
		store := memory.NewStore()
		svc := newService(store)

		alice := seedUser(t, store, 1_000_000)
		bob := seedUser(t, store, 1_000_000)
		_, seatIDs := seedShow(t, store, future, 50_000)

		res, err := svc.ReserveSeats(ctx, alice, seatIDs, "")
		require.NoError(t, err)
		require.NoError(t, svc.CancelReservation(ctx, alice, res.ID))

		_, err = svc.ReserveSeats(ctx, bob, seatIDs, "")
		require.NoError(t, err)
	})
}

func TestListByUser(t *testing.T) {
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour)

	store := memory.NewStore()
	svc := newService(store)

	userID := seedUser(t, store, 1_000_000)
	_, seatIDs := seedShow(t, store, future, 50_000, 30_000)

	res, err := svc.ReserveSeats(ctx, userID, seatIDs, "")
	require.NoError(t, err)

	list, err := svc.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, res.ID, list[0].ID)
	assert.Equal(t, "Test Show", list[0].ShowTitle)
	assert.Equal(t, int64(-80_000), list[0].Point)
	assert.False(t, list[0].IsCanceled)

	// After cancellation the reservation's ledger entries net to zero.
	require.NoError(t, svc.CancelReservation(ctx, userID, res.ID))

	list, err = svc.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsCanceled)
	assert.Zero(t, list[0].Point)
}
