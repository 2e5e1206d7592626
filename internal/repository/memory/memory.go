// Package memory implements repository.Store on in-process state. It backs
// the service unit tests: InTx takes a snapshot and swaps it in only when fn
// succeeds, giving the same all-or-nothing, serialized semantics the
// postgres store gets from Serializable transactions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeonsu-dev/stagepass/internal/domain"
	"github.com/yeonsu-dev/stagepass/internal/repository"
)

type state struct {
	users        []domain.User
	shows        []domain.Show
	seats        []domain.Seat
	reservations []domain.Reservation
	occupancy    map[int64]int64 // seatID -> reservationID, absent = free
	ledger       []domain.LedgerEntry
	nextID       map[string]int64
}

func (s *state) clone() *state {
	cp := &state{
		users:        append([]domain.User(nil), s.users...),
		shows:        append([]domain.Show(nil), s.shows...),
		seats:        append([]domain.Seat(nil), s.seats...),
		reservations: append([]domain.Reservation(nil), s.reservations...),
		occupancy:    make(map[int64]int64, len(s.occupancy)),
		ledger:       append([]domain.LedgerEntry(nil), s.ledger...),
		nextID:       make(map[string]int64, len(s.nextID)),
	}
	for k, v := range s.occupancy {
		cp.occupancy[k] = v
	}
	for k, v := range s.nextID {
		cp.nextID[k] = v
	}
	return cp
}

func (s *state) seq(entity string) int64 {
	s.nextID[entity]++
	return s.nextID[entity]
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{
		st: &state{
			occupancy: make(map[int64]int64),
			nextID:    make(map[string]int64),
		},
	}
}

// InTx serializes transactions with a single mutex and applies fn to a
// snapshot, so a failed fn leaves no partial state behind.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	if err := fn(ctx, &view{st: snap}); err != nil {
		return err
	}

	s.st = snap
	return nil
}

func (s *Store) Users() repository.UserRepo               { return userRepo{s: s} }
func (s *Store) Shows() repository.ShowRepo               { return showRepo{s: s} }
func (s *Store) Seats() repository.SeatRepo               { return seatRepo{s: s} }
func (s *Store) Reservations() repository.ReservationRepo { return reservationRepo{s: s} }
func (s *Store) Occupancy() repository.OccupancyRepo      { return occupancyRepo{s: s} }
func (s *Store) Ledger() repository.LedgerRepo            { return ledgerRepo{s: s} }

// view is the Repos handed to an in-flight transaction. The store mutex is
// already held, so repos operate on the snapshot lock-free.
type view struct {
	st *state
}

func (v *view) Users() repository.UserRepo               { return userRepo{st: v.st} }
func (v *view) Shows() repository.ShowRepo               { return showRepo{st: v.st} }
func (v *view) Seats() repository.SeatRepo               { return seatRepo{st: v.st} }
func (v *view) Reservations() repository.ReservationRepo { return reservationRepo{st: v.st} }
func (v *view) Occupancy() repository.OccupancyRepo      { return occupancyRepo{st: v.st} }
func (v *view) Ledger() repository.LedgerRepo            { return ledgerRepo{st: v.st} }

// repoBase resolves the state to operate on: the transaction snapshot when
// bound to one, otherwise the live state under the store lock.
type repoBase struct {
	s  *Store
	st *state
}

func (b repoBase) do(fn func(st *state) error) error {
	if b.st != nil {
		return fn(b.st)
	}

	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return fn(b.s.st)
}

// --- users ---

type userRepo repoBase

func (r userRepo) Create(ctx context.Context, loginID, passwordHash, username string) (*domain.User, error) {
	var out *domain.User
	err := repoBase(r).do(func(st *state) error {
		for _, u := range st.users {
			if u.LoginID == loginID || u.Username == username {
				return fmt.Errorf("memory.UserRepo.Create: %w", repository.ErrConflict)
			}
		}
		u := domain.User{
			ID:           st.seq("users"),
			LoginID:      loginID,
			Username:     username,
			PasswordHash: passwordHash,
			CreatedAt:    time.Now(),
		}
		st.users = append(st.users, u)
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := repoBase(r).do(func(st *state) error {
		for _, u := range st.users {
			if u.ID == id {
				cp := u
				out = &cp
				return nil
			}
		}
		return fmt.Errorf("memory.UserRepo.GetByID: %w", repository.ErrNotFound)
	})
	return out, err
}

func (r userRepo) GetByLoginID(ctx context.Context, loginID string) (*domain.User, error) {
	var out *domain.User
	err := repoBase(r).do(func(st *state) error {
		for _, u := range st.users {
			if u.LoginID == loginID {
				cp := u
				out = &cp
				return nil
			}
		}
		return fmt.Errorf("memory.UserRepo.GetByLoginID: %w", repository.ErrNotFound)
	})
	return out, err
}

// SetAdmin flags an existing user as admin. Test seam; the SQL schema seeds
// admins out of band.
func (s *Store) SetAdmin(id int64, isAdmin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.users {
		if s.st.users[i].ID == id {
			s.st.users[i].IsAdmin = isAdmin
		}
	}
}

// --- shows ---

type showRepo repoBase

func (r showRepo) Create(ctx context.Context, title, description string, showTime time.Time, maxSeats int) (int64, error) {
	var id int64
	err := repoBase(r).do(func(st *state) error {
		id = st.seq("shows")
		st.shows = append(st.shows, domain.Show{
			ID:          id,
			Title:       title,
			Description: description,
			ShowTime:    showTime,
			MaxSeats:    maxSeats,
		})
		return nil
	})
	return id, err
}

func (r showRepo) Get(ctx context.Context, id int64) (*domain.Show, error) {
	var out *domain.Show
	err := repoBase(r).do(func(st *state) error {
		for _, sh := range st.shows {
			if sh.ID == id {
				cp := sh
				out = &cp
				return nil
			}
		}
		return fmt.Errorf("memory.ShowRepo.Get: %w", repository.ErrNotFound)
	})
	return out, err
}

func (r showRepo) List(ctx context.Context) ([]domain.Show, error) {
	var out []domain.Show
	err := repoBase(r).do(func(st *state) error {
		out = append(out, st.shows...)
		return nil
	})
	sortShowsDesc(out)
	return out, err
}

func (r showRepo) Search(ctx context.Context, keyword string) ([]domain.Show, error) {
	kw := strings.ToLower(keyword)
	var out []domain.Show
	err := repoBase(r).do(func(st *state) error {
		for _, sh := range st.shows {
			if strings.Contains(strings.ToLower(sh.Title), kw) ||
				strings.Contains(strings.ToLower(sh.Description), kw) {
				out = append(out, sh)
			}
		}
		return nil
	})
	sortShowsDesc(out)
	return out, err
}

func sortShowsDesc(shows []domain.Show) {
	sort.SliceStable(shows, func(i, j int) bool {
		return shows[i].ShowTime.After(shows[j].ShowTime)
	})
}

// --- seats ---

type seatRepo repoBase

func (r seatRepo) BulkCreate(ctx context.Context, seats []domain.Seat) error {
	return repoBase(r).do(func(st *state) error {
		for _, seat := range seats {
			seat.ID = st.seq("seats")
			st.seats = append(st.seats, seat)
		}
		return nil
	})
}

func (r seatRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Seat, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var out []domain.Seat
	err := repoBase(r).do(func(st *state) error {
		for _, seat := range st.seats {
			if want[seat.ID] {
				out = append(out, seat)
			}
		}
		return nil
	})
	return out, err
}

func (r seatRepo) ListByShow(ctx context.Context, showID int64) ([]domain.Seat, error) {
	var out []domain.Seat
	err := repoBase(r).do(func(st *state) error {
		for _, seat := range st.seats {
			if seat.ShowID == showID {
				out = append(out, seat)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, err
}

// --- reservations ---

type reservationRepo repoBase

func (r reservationRepo) Create(ctx context.Context, userID, showID int64) (int64, error) {
	var id int64
	err := repoBase(r).do(func(st *state) error {
		id = st.seq("reservations")
		st.reservations = append(st.reservations, domain.Reservation{
			ID:        id,
			UserID:    userID,
			ShowID:    showID,
			CreatedAt: time.Now(),
		})
		return nil
	})
	return id, err
}

func (r reservationRepo) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	var out *domain.Reservation
	err := repoBase(r).do(func(st *state) error {
		for _, res := range st.reservations {
			if res.ID == id {
				cp := res
				out = &cp
				return nil
			}
		}
		return fmt.Errorf("memory.ReservationRepo.Get: %w", repository.ErrNotFound)
	})
	return out, err
}

func (r reservationRepo) MarkCanceled(ctx context.Context, id int64) error {
	return repoBase(r).do(func(st *state) error {
		for i := range st.reservations {
			if st.reservations[i].ID == id && !st.reservations[i].IsCanceled {
				st.reservations[i].IsCanceled = true
				return nil
			}
		}
		return fmt.Errorf("memory.ReservationRepo.MarkCanceled: %w", repository.ErrNotFound)
	})
}

func (r reservationRepo) ListByUser(ctx context.Context, userID int64) ([]domain.UserReservation, error) {
	var out []domain.UserReservation
	err := repoBase(r).do(func(st *state) error {
		for _, res := range st.reservations {
			if res.UserID != userID {
				continue
			}

			ur := domain.UserReservation{
				ID:         res.ID,
				ReservedAt: res.CreatedAt,
				IsCanceled: res.IsCanceled,
				ShowID:     res.ShowID,
			}
			for _, sh := range st.shows {
				if sh.ID == res.ShowID {
					ur.ShowTitle = sh.Title
					ur.ShowTime = sh.ShowTime
				}
			}
			for _, e := range st.ledger {
				if e.ReservationID != nil && *e.ReservationID == res.ID {
					ur.Point += e.Point
				}
			}
			out = append(out, ur)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReservedAt.After(out[j].ReservedAt) })
	return out, err
}

// --- occupancy ---

type occupancyRepo repoBase

func (r occupancyRepo) CountOccupied(ctx context.Context, seatIDs []int64) (int, error) {
	var n int
	err := repoBase(r).do(func(st *state) error {
		for _, id := range seatIDs {
			if _, ok := st.occupancy[id]; ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r occupancyRepo) Claim(ctx context.Context, seatIDs []int64, reservationID int64) error {
	return repoBase(r).do(func(st *state) error {
		for _, id := range seatIDs {
			if _, ok := st.occupancy[id]; ok {
				return fmt.Errorf("memory.OccupancyRepo.Claim: %w", repository.ErrSeatsUnavailable)
			}
		}
		for _, id := range seatIDs {
			st.occupancy[id] = reservationID
		}
		return nil
	})
}

func (r occupancyRepo) Release(ctx context.Context, reservationID int64) error {
	return repoBase(r).do(func(st *state) error {
		for seatID, resID := range st.occupancy {
			if resID == reservationID {
				delete(st.occupancy, seatID)
			}
		}
		return nil
	})
}

func (r occupancyRepo) CountOccupiedByShow(ctx context.Context, showID int64) (int, error) {
	var n int
	err := repoBase(r).do(func(st *state) error {
		for _, seat := range st.seats {
			if seat.ShowID != showID {
				continue
			}
			if _, ok := st.occupancy[seat.ID]; ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r occupancyRepo) ListByShow(ctx context.Context, showID int64) ([]domain.SeatOccupancy, error) {
	var out []domain.SeatOccupancy
	err := repoBase(r).do(func(st *state) error {
		for _, seat := range st.seats {
			if seat.ShowID != showID {
				continue
			}

			so := domain.SeatOccupancy{SeatID: seat.ID, Status: domain.SeatFree}
			if resID, ok := st.occupancy[seat.ID]; ok {
				so.Status = domain.SeatOccupied
				so.ReservationID = resID
			}
			out = append(out, so)
		}
		return nil
	})
	return out, err
}

// --- ledger ---

type ledgerRepo repoBase

func (r ledgerRepo) Append(ctx context.Context, userID int64, point int64, reason string, reservationID *int64) error {
	return repoBase(r).do(func(st *state) error {
		var resID *int64
		if reservationID != nil {
			v := *reservationID
			resID = &v
		}
		st.ledger = append(st.ledger, domain.LedgerEntry{
			ID:            st.seq("points"),
			UserID:        userID,
			ReservationID: resID,
			Point:         point,
			Reason:        reason,
			CreatedAt:     time.Now(),
		})
		return nil
	})
}

func (r ledgerRepo) Balance(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := repoBase(r).do(func(st *state) error {
		for _, e := range st.ledger {
			if e.UserID == userID {
				sum += e.Point
			}
		}
		return nil
	})
	return sum, err
}

func (r ledgerRepo) BalanceForReservation(ctx context.Context, reservationID int64) (int64, error) {
	var sum int64
	err := repoBase(r).do(func(st *state) error {
		for _, e := range st.ledger {
			if e.ReservationID != nil && *e.ReservationID == reservationID {
				sum += e.Point
			}
		}
		return nil
	})
	return sum, err
}
