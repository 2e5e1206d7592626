package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeonsu-dev/stagepass/internal/domain"
)

type ShowRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ShowRepo) With(db DB) *ShowRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ShowRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *ShowRepo) Create(
	ctx context.Context,
	title, description string,
	showTime time.Time,
	maxSeats int,
) (int64, error) {
	const op = "postgres.ShowRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO shows(title, description, show_time, max_seats)
       	 VALUES ($1, $2, $3, $4)
     	 RETURNING id`,
		title, description, showTime, maxSeats,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a show by its ID.
//
// Returns:
//   - *domain.Show: the show when found.
//   - error: repository.ErrNotFound if the show is not found.
func (r *ShowRepo) Get(ctx context.Context, id int64) (*domain.Show, error) {
	const op = "postgres.ShowRepo.Get"

	db := r.handle()

	var s domain.Show
	err := db.QueryRow(ctx,
		`SELECT id, title, description, show_time, max_seats
       	 FROM shows WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Title, &s.Description, &s.ShowTime, &s.MaxSeats)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

func (r *ShowRepo) List(ctx context.Context) ([]domain.Show, error) {
	const op = "postgres.ShowRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, title, description, show_time, max_seats
		 FROM shows
		 ORDER BY show_time DESC`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out, err := scanShows(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Search matches keyword case-insensitively against title and description,
// newest show time first.
func (r *ShowRepo) Search(ctx context.Context, keyword string) ([]domain.Show, error) {
	const op = "postgres.ShowRepo.Search"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, title, description, show_time, max_seats
		 FROM shows
		 WHERE title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		 ORDER BY show_time DESC`,
		keyword,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out, err := scanShows(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
