package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeonsu-dev/stagepass/internal/domain"
)

type SeatRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SeatRepo) With(db DB) *SeatRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SeatRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// BulkCreate inserts the seats and seeds one free occupancy row per seat.
// Occupancy rows live for the lifetime of the seat and are only ever
// claimed or released, never deleted.
func (r *SeatRepo) BulkCreate(ctx context.Context, seats []domain.Seat) error {
	const op = "postgres.SeatRepo.BulkCreate"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`WITH new_seat AS (
			     INSERT INTO seats(show_id, seat_number, grade, price)
			     VALUES ($1, $2, $3, $4)
			     RETURNING id
			 )
			 INSERT INTO seat_reservations(seat_id)
			 SELECT id FROM new_seat`,
			s.ShowID, s.SeatNumber, s.Grade, s.Price,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// GetByIDs returns only the seats that exist. Callers compare the result
// length against the requested ids to detect missing or duplicated ids.
func (r *SeatRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Seat, error) {
	const op = "postgres.SeatRepo.GetByIDs"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, show_id, seat_number, grade, price
       	 FROM seats
      	 WHERE id = ANY($1)
      	 ORDER BY id`,
		ids,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out, err := scanSeats(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *SeatRepo) ListByShow(ctx context.Context, showID int64) ([]domain.Seat, error) {
	const op = "postgres.SeatRepo.ListByShow"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, show_id, seat_number, grade, price
       	 FROM seats
      	 WHERE show_id = $1
      	 ORDER BY seat_number`,
		showID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out, err := scanSeats(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
