package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeonsu-dev/stagepass/internal/domain"
	redisx "github.com/yeonsu-dev/stagepass/internal/redis"
	"github.com/yeonsu-dev/stagepass/internal/repository"
	redisrepo "github.com/yeonsu-dev/stagepass/internal/repository/redis"
	"github.com/yeonsu-dev/stagepass/internal/uow"
)

type Config struct {
	ShowListTTL time.Duration
}

// Service owns show and seat inventory. Shows are immutable once created,
// which is what makes the metadata cache safe.
type Service struct {
	store repository.Store
	cache *redisrepo.Cache
	uow   *uow.UoW
	cfg   Config
}

func New(store repository.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.ShowListTTL <= 0 {
		cfg.ShowListTTL = 60 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		uow:   uow.New(store),
		cfg:   cfg,
	}
}

// CreateShow creates one show per requested time, each cloned with the same
// seat configuration. maxSeats is always computed from the seat groups;
// whatever capacity the client claims is ignored, so inventory and
// advertised capacity cannot diverge. Seats are numbered 1..maxSeats per
// show, contiguous within each grade group in input order.
//
// Returns:
//   - []domain.Show: the created runs, in input time order.
//   - error: ErrUnauthorized unless the requester is an admin;
//     ErrInvalidShowTime if any time is not strictly in the future.
func (s *Service) CreateShow(
	ctx context.Context,
	requesterID int64,
	title, description string,
	seatGroups []domain.SeatGroup,
	showTimes []time.Time,
) ([]domain.Show, error) {
	const op = "service.catalog.CreateShow"

	if len(seatGroups) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSeatGroups)
	}

	requester, err := s.store.Users().GetByID(ctx, requesterID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if requester == nil || !requester.IsAdmin {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	now := time.Now()
	for _, st := range showTimes {
		if !st.After(now) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidShowTime)
		}
	}

	maxSeats := 0
	for _, g := range seatGroups {
		maxSeats += g.Count
	}

	var created []domain.Show

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		r repository.Repos,
		after func(uow.AfterCommit),
	) error {
		for _, showTime := range showTimes {
			showID, err := r.Shows().Create(ctx, title, description, showTime, maxSeats)
			if err != nil {
				return err
			}

			seats := make([]domain.Seat, 0, maxSeats)
			seatNumber := 0
			for _, g := range seatGroups {
				for i := 0; i < g.Count; i++ {
					seatNumber++
					seats = append(seats, domain.Seat{
						ShowID:     showID,
						SeatNumber: seatNumber,
						Grade:      g.Grade,
						Price:      g.Price,
					})
				}
			}

			if err := r.Seats().BulkCreate(ctx, seats); err != nil {
				return err
			}

			created = append(created, domain.Show{
				ID:          showID,
				Title:       title,
				Description: description,
				ShowTime:    showTime,
				MaxSeats:    maxSeats,
			})
		}

		if s.cache != nil {
			after(func(ctx context.Context) {
				for _, sh := range created {
					_ = s.cache.InvalidateShow(ctx, sh.ID)
				}
			})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

// GetShow retrieves one show's metadata, served from the summary cache when
// one is configured.
func (s *Service) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	const op = "service.catalog.GetShow"

	load := func(ctx context.Context) (*domain.Show, error) {
		return s.store.Shows().Get(ctx, id)
	}

	var (
		show *domain.Show
		err  error
	)
	if s.cache == nil {
		show, err = load(ctx)
	} else {
		show, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyShowSummary(id), s.cfg.ShowListTTL, load)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShowNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return show, nil
}

// ListShows returns all shows, newest show time first. The list is metadata
// only and safe to cache; it is invalidated when new runs are created.
func (s *Service) ListShows(ctx context.Context) ([]domain.Show, error) {
	const op = "service.catalog.ListShows"

	if s.cache == nil {
		out, err := s.store.Shows().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return out, nil
	}

	out, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyShowList(),
		s.cfg.ShowListTTL,
		func(ctx context.Context) ([]domain.Show, error) {
			return s.store.Shows().List(ctx)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// SearchShows matches keyword case-insensitively against title and
// description, newest show time first.
func (s *Service) SearchShows(ctx context.Context, keyword string) ([]domain.Show, error) {
	const op = "service.catalog.SearchShows"

	out, err := s.store.Shows().Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
