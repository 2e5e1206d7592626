package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeonsu-dev/stagepass/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// InTx implements repository.Store. The occupancy check and the occupying
// write in a reservation run under the same Serializable transaction, so two
// requests racing for one seat can never both commit.
func (s *Store) InTx(
	ctx context.Context,
	fn func(ctx context.Context, r repository.Repos) error,
) error {
	return s.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		return fn(ctx, &txRepos{store: s, tx: tx})
	})
}

func (s *Store) Users() repository.UserRepo               { return &UserRepo{pool: s.pool} }
func (s *Store) Shows() repository.ShowRepo               { return &ShowRepo{pool: s.pool} }
func (s *Store) Seats() repository.SeatRepo               { return &SeatRepo{pool: s.pool} }
func (s *Store) Reservations() repository.ReservationRepo { return &ReservationRepo{pool: s.pool} }
func (s *Store) Occupancy() repository.OccupancyRepo      { return &OccupancyRepo{pool: s.pool} }
func (s *Store) Ledger() repository.LedgerRepo            { return &LedgerRepo{pool: s.pool} }

// txRepos is a Repos view whose repositories are bound to one transaction.
type txRepos struct {
	store *Store
	tx    DB
}

func (r *txRepos) Users() repository.UserRepo { return &UserRepo{pool: r.store.pool, db: r.tx} }
func (r *txRepos) Shows() repository.ShowRepo { return &ShowRepo{pool: r.store.pool, db: r.tx} }
func (r *txRepos) Seats() repository.SeatRepo { return &SeatRepo{pool: r.store.pool, db: r.tx} }
func (r *txRepos) Reservations() repository.ReservationRepo {
	return &ReservationRepo{pool: r.store.pool, db: r.tx}
}
func (r *txRepos) Occupancy() repository.OccupancyRepo {
	return &OccupancyRepo{pool: r.store.pool, db: r.tx}
}
func (r *txRepos) Ledger() repository.LedgerRepo { return &LedgerRepo{pool: r.store.pool, db: r.tx} }
