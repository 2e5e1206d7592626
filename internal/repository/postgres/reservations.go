package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeonsu-dev/stagepass/internal/domain"
	"github.com/yeonsu-dev/stagepass/internal/repository"
)

type ReservationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *ReservationRepo) Create(ctx context.Context, userID, showID int64) (int64, error) {
	const op = "postgres.ReservationRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO reservations(user_id, show_id)
       	 VALUES ($1, $2)
     	 RETURNING id`,
		userID, showID,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a reservation by its ID.
//
// Returns:
//   - *domain.Reservation: the reservation when found.
//   - error: repository.ErrNotFound if the reservation is not found.
func (r *ReservationRepo) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "postgres.ReservationRepo.Get"

	db := r.handle()

	var res domain.Reservation
	err := db.QueryRow(ctx,
		`SELECT id, user_id, show_id, is_canceled, created_at
       	 FROM reservations WHERE id = $1`,
		id,
	).Scan(&res.ID, &res.UserID, &res.ShowID, &res.IsCanceled, &res.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &res, nil
}

// MarkCanceled flips is_canceled to true. The guard on is_canceled keeps the
// transition monotonic even if the caller's pre-check raced.
func (r *ReservationRepo) MarkCanceled(ctx context.Context, id int64) error {
	const op = "postgres.ReservationRepo.MarkCanceled"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE reservations
         SET is_canceled = TRUE
      	 WHERE id = $1 AND is_canceled = FALSE`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// ListByUser returns the user's reservations joined with their show and the
// net sum of the ledger entries tagged with each reservation, newest first.
func (r *ReservationRepo) ListByUser(
	ctx context.Context,
	userID int64,
) ([]domain.UserReservation, error) {
	const op = "postgres.ReservationRepo.ListByUser"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT r.id, r.created_at, r.is_canceled,
		        s.id, s.title, s.show_time,
		        COALESCE(SUM(p.point), 0)
       	 FROM reservations r
       	 JOIN shows s ON s.id = r.show_id
       	 LEFT JOIN points p ON p.reservation_id = r.id
      	 WHERE r.user_id = $1
      	 GROUP BY r.id, r.created_at, r.is_canceled, s.id, s.title, s.show_time
      	 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.UserReservation
	for rows.Next() {
		var ur domain.UserReservation
		if err := rows.Scan(
			&ur.ID,
			&ur.ReservedAt,
			&ur.IsCanceled,
			&ur.ShowID,
			&ur.ShowTitle,
			&ur.ShowTime,
			&ur.Point,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, ur)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
