package postgres

import (
	"github.com/jackc/pgx/v5"

	"github.com/yeonsu-dev/stagepass/internal/domain"
)

func scanShows(rows pgx.Rows) ([]domain.Show, error) {
	var out []domain.Show
	for rows.Next() {
		var s domain.Show
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.ShowTime, &s.MaxSeats); err != nil {
			return nil, err
		}

		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func scanSeats(rows pgx.Rows) ([]domain.Seat, error) {
	var out []domain.Seat
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.ShowID, &s.SeatNumber, &s.Grade, &s.Price); err != nil {
			return nil, err
		}

		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
