package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeonsu-dev/stagepass/internal/domain"
	"github.com/yeonsu-dev/stagepass/internal/repository"
)

// OccupancyRepo manages seat_reservations rows. One row per seat exists from
// seat creation onward; reservation_id NULL means the seat is free. Rows are
// claimed and released in place, never deleted.
type OccupancyRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OccupancyRepo) With(db DB) *OccupancyRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OccupancyRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *OccupancyRepo) CountOccupied(ctx context.Context, seatIDs []int64) (int, error) {
	const op = "postgres.OccupancyRepo.CountOccupied"

	db := r.handle()

	var n int
	err := db.QueryRow(ctx,
		`SELECT COUNT(*)
       	 FROM seat_reservations
      	 WHERE seat_id = ANY($1) AND reservation_id IS NOT NULL`,
		seatIDs,
	).Scan(&n)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

// Claim binds every seat in seatIDs to reservationID in one conditional
// update. If any seat is already occupied the affected-row count falls short
// and the claim fails with repository.ErrSeatsUnavailable; the surrounding
// transaction then rolls back, claiming nothing.
func (r *OccupancyRepo) Claim(ctx context.Context, seatIDs []int64, reservationID int64) error {
	const op = "postgres.OccupancyRepo.Claim"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE seat_reservations
         SET reservation_id = $2
      	 WHERE seat_id = ANY($1) AND reservation_id IS NULL`,
		seatIDs, reservationID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if int(tag.RowsAffected()) != len(seatIDs) {
		return fmt.Errorf("%s: %w", op, repository.ErrSeatsUnavailable)
	}

	return nil
}

// Release frees every seat bound to reservationID by nulling the reference.
func (r *OccupancyRepo) Release(ctx context.Context, reservationID int64) error {
	const op = "postgres.OccupancyRepo.Release"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`UPDATE seat_reservations
         SET reservation_id = NULL
      	 WHERE reservation_id = $1`,
		reservationID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OccupancyRepo) CountOccupiedByShow(ctx context.Context, showID int64) (int, error) {
	const op = "postgres.OccupancyRepo.CountOccupiedByShow"

	db := r.handle()

	var n int
	err := db.QueryRow(ctx,
		`SELECT COUNT(*)
       	 FROM seat_reservations sr
       	 JOIN seats s ON s.id = sr.seat_id
      	 WHERE s.show_id = $1 AND sr.reservation_id IS NOT NULL`,
		showID,
	).Scan(&n)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func (r *OccupancyRepo) ListByShow(
	ctx context.Context,
	showID int64,
) ([]domain.SeatOccupancy, error) {
	const op = "postgres.OccupancyRepo.ListByShow"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT sr.seat_id, sr.reservation_id
       	 FROM seat_reservations sr
       	 JOIN seats s ON s.id = sr.seat_id
      	 WHERE s.show_id = $1
      	 ORDER BY s.seat_number`,
		showID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.SeatOccupancy
	for rows.Next() {
		var so domain.SeatOccupancy
		var resID *int64

		if err := rows.Scan(&so.SeatID, &resID); err != nil {
			return nil, wrapDBErr(op, err)
		}

		if resID != nil {
			so.Status = domain.SeatOccupied
			so.ReservationID = *resID
		} else {
			so.Status = domain.SeatFree
		}

		out = append(out, so)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
