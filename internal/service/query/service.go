package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeonsu-dev/stagepass/internal/domain"
	"github.com/yeonsu-dev/stagepass/internal/repository"
)

// Service is the seat-availability projector. Everything it returns is
// derived from committed reservation and occupancy state on every call;
// nothing here is cached. Canceled reservations have already had their
// occupancy rows freed, so counting occupied rows needs no cancellation
// filter.
type Service struct {
	store repository.Store
}

func New(store repository.Store) *Service {
	return &Service{store: store}
}

// ShowDetail returns the show with its remaining seat count and whether it
// can still be booked: the show time must be strictly in the future and at
// least one seat must be free.
//
// Returns:
//   - *domain.ShowDetail: the projection.
//   - error: ErrShowNotFound if the show does not exist.
func (s *Service) ShowDetail(ctx context.Context, showID int64) (*domain.ShowDetail, error) {
	const op = "service.query.ShowDetail"

	show, err := s.store.Shows().Get(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	occupied, err := s.store.Occupancy().CountOccupiedByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &domain.ShowDetail{
		Show:           *show,
		RemainingSeats: show.MaxSeats - occupied,
		IsBookable:     show.ShowTime.After(time.Now()) && occupied < show.MaxSeats,
	}, nil
}

// ShowSeats returns every seat of the show with its reserved flag, in seat
// number order.
//
// Returns:
//   - []domain.SeatWithStatus: all seats with IsReserved set.
//   - error: ErrShowNotFound if the show does not exist.
func (s *Service) ShowSeats(ctx context.Context, showID int64) ([]domain.SeatWithStatus, error) {
	const op = "service.query.ShowSeats"

	if _, err := s.store.Shows().Get(ctx, showID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seats, err := s.store.Seats().ListByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	occupancy, err := s.store.Occupancy().ListByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	occupied := make(map[int64]bool, len(occupancy))
	for _, o := range occupancy {
		if o.Occupied() {
			occupied[o.SeatID] = true
		}
	}

	out := make([]domain.SeatWithStatus, 0, len(seats))
	for _, seat := range seats {
		out = append(out, domain.SeatWithStatus{
			Seat:       seat,
			IsReserved: occupied[seat.ID],
		})
	}

	return out, nil
}
