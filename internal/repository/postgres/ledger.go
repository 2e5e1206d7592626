package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepo is the append-only points ledger. Balances are computed by
// summation on every read; entries are never updated or deleted.
type LedgerRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LedgerRepo) With(db DB) *LedgerRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LedgerRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *LedgerRepo) Append(
	ctx context.Context,
	userID int64,
	point int64,
	reason string,
	reservationID *int64,
) error {
	const op = "postgres.LedgerRepo.Append"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO points(user_id, point, reason, reservation_id)
       	 VALUES ($1, $2, $3, $4)`,
		userID, point, reason, reservationID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Balance sums all entries for the user. A user with no entries has balance
// 0, not an error.
func (r *LedgerRepo) Balance(ctx context.Context, userID int64) (int64, error) {
	const op = "postgres.LedgerRepo.Balance"

	db := r.handle()

	var sum int64
	err := db.QueryRow(ctx,
		`SELECT COALESCE(SUM(point), 0) FROM points WHERE user_id = $1`,
		userID,
	).Scan(&sum)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return sum, nil
}

// BalanceForReservation sums the entries tagged with the reservation. After
// a reserve this is the negative debit; the refund is its additive inverse.
func (r *LedgerRepo) BalanceForReservation(ctx context.Context, reservationID int64) (int64, error) {
	const op = "postgres.LedgerRepo.BalanceForReservation"

	db := r.handle()

	var sum int64
	err := db.QueryRow(ctx,
		`SELECT COALESCE(SUM(point), 0) FROM points WHERE reservation_id = $1`,
		reservationID,
	).Scan(&sum)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return sum, nil
}
