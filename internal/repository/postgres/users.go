package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yeonsu-dev/stagepass/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a user. Uniqueness of login_id and username is enforced by
// the table constraints; violations surface as repository.ErrConflict.
func (r *UserRepo) Create(
	ctx context.Context,
	loginID, passwordHash, username string,
) (*domain.User, error) {
	const op = "postgres.UserRepo.Create"

	db := r.handle()

	u := domain.User{
		LoginID:      loginID,
		Username:     username,
		PasswordHash: passwordHash,
	}

	err := db.QueryRow(ctx,
		`INSERT INTO users(login_id, password_hash, username)
       	 VALUES ($1, $2, $3)
     	 RETURNING id, is_admin, created_at`,
		loginID, passwordHash, username,
	).Scan(&u.ID, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByID"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`SELECT id, login_id, username, password_hash, is_admin, created_at
       	 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.LoginID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}

func (r *UserRepo) GetByLoginID(ctx context.Context, loginID string) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByLoginID"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`SELECT id, login_id, username, password_hash, is_admin, created_at
       	 FROM users WHERE login_id = $1`,
		loginID,
	).Scan(&u.ID, &u.LoginID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}
