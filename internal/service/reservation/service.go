package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeonsu-dev/stagepass/internal/domain"
	"github.com/yeonsu-dev/stagepass/internal/repository"
	redisrepo "github.com/yeonsu-dev/stagepass/internal/repository/redis"
	"github.com/yeonsu-dev/stagepass/internal/uow"
)

const (
	reasonReserve = "show reservation"
	reasonCancel  = "cancellation"

	// maxAttempts bounds retries of transactions aborted by serialization
	// failures. Seat conflicts are not retried; only aborts the storage
	// layer marks retryable.
	maxAttempts = 3
)

type Config struct {
	MaxRetryDelay time.Duration
}

// Notifier receives show-change notifications after a reservation commit.
type Notifier interface {
	ShowChanged(ctx context.Context, showID int64)
}

// IsRetryable reports whether a failed transaction may succeed when rerun
// from scratch. The postgres store plugs in its serialization-failure check;
// tests leave it nil.
type IsRetryable func(err error) bool

// Service is the reservation engine: it allocates seats to users, debits and
// credits the points ledger, and keeps seat, reservation and ledger state
// consistent under concurrent demand. Every reserve and cancel runs as one
// atomic transaction.
type Service struct {
	store     repository.Store
	uow       *uow.UoW
	notifier  Notifier
	limiter   *redisrepo.SlidingWindowLimiter
	retryable IsRetryable
	cfg       Config
}

func New(
	store repository.Store,
	notifier Notifier,
	limiter *redisrepo.SlidingWindowLimiter,
	retryable IsRetryable,
	cfg Config,
) *Service {
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = 50 * time.Millisecond
	}

	return &Service{
		store:     store,
		uow:       uow.New(store),
		notifier:  notifier,
		limiter:   limiter,
		retryable: retryable,
		cfg:       cfg,
	}
}

// ReserveSeats reserves the given seats for the user and debits the total
// price from the user's point balance.
//
// Validation order is part of the contract: seat existence, then balance,
// then occupancy, then same-show, then show time. All checks and the writes
// run inside one transaction, so two requests racing for the same seat
// cannot both pass the occupancy check and commit.
//
// Returns:
//   - *domain.Reservation: the created reservation.
//   - error: ErrSeatNotFound, ErrNotEnoughPoint, ErrSeatAlreadyReserved,
//     ErrSeatNotInSameShow or ErrShowAlreadyStarted.
func (s *Service) ReserveSeats(
	ctx context.Context,
	userID int64,
	seatIDs []int64,
	rlKey string,
) (*domain.Reservation, error) {
	const op = "service.reservation.ReserveSeats"

	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrSeatNotFound)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: rate limited, retry in %s", op, retry)
		}
	}

	var (
		out     *domain.Reservation
		lastErr error
	)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, lastErr = s.reserveOnce(ctx, userID, seatIDs)
		if lastErr == nil || s.retryable == nil || !s.retryable(lastErr) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(s.cfg.MaxRetryDelay):
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%s: %w", op, lastErr)
	}

	return out, nil
}

func (s *Service) reserveOnce(
	ctx context.Context,
	userID int64,
	seatIDs []int64,
) (*domain.Reservation, error) {
	var out domain.Reservation

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		r repository.Repos,
		after func(uow.AfterCommit),
	) error {
		seats, err := r.Seats().GetByIDs(ctx, seatIDs)
		if err != nil {
			return err
		}

		// Fewer rows than requested ids covers both nonexistent ids and
		// duplicates collapsing.
		if len(seats) < len(seatIDs) {
			return ErrSeatNotFound
		}

		var totalPrice int64
		for _, seat := range seats {
			totalPrice += seat.Price
		}

		balance, err := r.Ledger().Balance(ctx, userID)
		if err != nil {
			return err
		}

		if balance < totalPrice {
			return ErrNotEnoughPoint
		}

		occupied, err := r.Occupancy().CountOccupied(ctx, seatIDs)
		if err != nil {
			return err
		}

		if occupied > 0 {
			return ErrSeatAlreadyReserved
		}

		showID := seats[0].ShowID
		for _, seat := range seats[1:] {
			if seat.ShowID != showID {
				return ErrSeatNotInSameShow
			}
		}

		show, err := r.Shows().Get(ctx, showID)
		if err != nil {
			return err
		}

		if !show.ShowTime.After(time.Now()) {
			return ErrShowAlreadyStarted
		}

		resID, err := r.Reservations().Create(ctx, userID, showID)
		if err != nil {
			return err
		}

		if err := r.Occupancy().Claim(ctx, seatIDs, resID); err != nil {
			// A concurrent transaction slipped in between the count and
			// the claim; the conditional update caught it.
			if errors.Is(err, repository.ErrSeatsUnavailable) {
				return ErrSeatAlreadyReserved
			}

			return err
		}

		if err := r.Ledger().Append(ctx, userID, -totalPrice, reasonReserve, &resID); err != nil {
			return err
		}

		out = domain.Reservation{
			ID:        resID,
			UserID:    userID,
			ShowID:    showID,
			CreatedAt: time.Now(),
		}

		if s.notifier != nil {
			after(func(ctx context.Context) {
				s.notifier.ShowChanged(ctx, showID)
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// CancelReservation cancels the user's reservation, frees its seats and
// credits back exactly what the reservation's ledger entries sum to. A
// second cancel fails with ErrReservationAlreadyCanceled and changes
// nothing.
//
// Returns:
//   - error: ErrReservationNotFound, ErrReservationAlreadyCanceled or
//     ErrNotAuthorized.
func (s *Service) CancelReservation(ctx context.Context, userID, reservationID int64) error {
	const op = "service.reservation.CancelReservation"

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		r repository.Repos,
		after func(uow.AfterCommit),
	) error {
		res, err := r.Reservations().Get(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}

			return err
		}

		if res.IsCanceled {
			return ErrReservationAlreadyCanceled
		}

		if res.UserID != userID {
			return ErrNotAuthorized
		}

		// The original debit is negative; the refund is its additive
		// inverse, independent of any later seat price changes.
		spent, err := r.Ledger().BalanceForReservation(ctx, reservationID)
		if err != nil {
			return err
		}

		if err := r.Reservations().MarkCanceled(ctx, reservationID); err != nil {
			return err
		}

		if err := r.Occupancy().Release(ctx, reservationID); err != nil {
			return err
		}

		if err := r.Ledger().Append(ctx, userID, -spent, reasonCancel, &reservationID); err != nil {
			return err
		}

		if s.notifier != nil {
			showID := res.ShowID
			after(func(ctx context.Context) {
				s.notifier.ShowChanged(ctx, showID)
			})
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListByUser returns the user's reservations, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.UserReservation, error) {
	const op = "service.reservation.ListByUser"

	out, err := s.store.Reservations().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
