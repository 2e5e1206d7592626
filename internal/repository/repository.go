package repository

import (
	"context"
	"time"

	"github.com/yeonsu-dev/stagepass/internal/domain"
)

// Repos is the set of entity repositories the services compose. The postgres
// implementation binds every repo to the same pgx pool; inside InTx every
// repo is bound to the transaction instead.
type Repos interface {
	Users() UserRepo
	Shows() ShowRepo
	Seats() SeatRepo
	Reservations() ReservationRepo
	Occupancy() OccupancyRepo
	Ledger() LedgerRepo
}

// Store is a transactional repository set. InTx runs fn against a Repos view
// whose effects commit together or not at all.
type Store interface {
	Repos
	InTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

type UserRepo interface {
	// Create fails with ErrConflict when loginID or username is taken.
	Create(ctx context.Context, loginID, passwordHash, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByLoginID(ctx context.Context, loginID string) (*domain.User, error)
}

type ShowRepo interface {
	Create(ctx context.Context, title, description string, showTime time.Time, maxSeats int) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Show, error)
	List(ctx context.Context) ([]domain.Show, error)
	// Search matches keyword case-insensitively against title and
	// description, newest show time first.
	Search(ctx context.Context, keyword string) ([]domain.Show, error)
}

type SeatRepo interface {
	// BulkCreate inserts the seats and one free occupancy row per seat.
	BulkCreate(ctx context.Context, seats []domain.Seat) error
	// GetByIDs returns only the seats that exist; callers detect missing
	// ids by comparing lengths.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Seat, error)
	ListByShow(ctx context.Context, showID int64) ([]domain.Seat, error)
}

type ReservationRepo interface {
	Create(ctx context.Context, userID, showID int64) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Reservation, error)
	// MarkCanceled flips is_canceled false->true; ErrNotFound when the
	// reservation does not exist or is already canceled.
	MarkCanceled(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]domain.UserReservation, error)
}

// OccupancyRepo manages the seat_reservations binding rows. Rows exist from
// seat creation onward and are never deleted; a NULL reservation reference
// means the seat is free.
type OccupancyRepo interface {
	// CountOccupied counts rows among seatIDs holding a reservation.
	CountOccupied(ctx context.Context, seatIDs []int64) (int, error)
	// Claim atomically binds every seat in seatIDs to reservationID. It
	// fails with ErrSeatsUnavailable unless all of them were free, in
	// which case it claims none.
	Claim(ctx context.Context, seatIDs []int64, reservationID int64) error
	// Release frees every seat bound to reservationID.
	Release(ctx context.Context, reservationID int64) error
	CountOccupiedByShow(ctx context.Context, showID int64) (int, error)
	ListByShow(ctx context.Context, showID int64) ([]domain.SeatOccupancy, error)
}

type LedgerRepo interface {
	// Append writes one immutable entry. Entries are never updated or
	// deleted; refunds are new entries.
	Append(ctx context.Context, userID int64, point int64, reason string, reservationID *int64) error
	// Balance sums all entries for the user; 0 when none exist.
	Balance(ctx context.Context, userID int64) (int64, error)
	// BalanceForReservation sums the entries tagged with the reservation.
	// After a reserve this is the (negative) debit; refunding issues its
	// additive inverse.
	BalanceForReservation(ctx context.Context, reservationID int64) (int64, error)
}
