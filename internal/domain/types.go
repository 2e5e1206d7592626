package domain

import "time"

// OccupancyStatus is the tagged state of a seat's occupancy binding.
type OccupancyStatus string

const (
	SeatFree     OccupancyStatus = "free"
	SeatOccupied OccupancyStatus = "occupied"
)

type User struct {
	ID           int64
	LoginID      string
	Username     string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

type Show struct {
	ID          int64
	Title       string
	Description string
	ShowTime    time.Time
	MaxSeats    int
}

type Seat struct {
	ID         int64
	ShowID     int64
	SeatNumber int
	Grade      string
	Price      int64
}

// SeatGroup describes one block of identically priced seats requested at
// show creation time.
type SeatGroup struct {
	Count int
	Grade string
	Price int64
}

type Reservation struct {
	ID         int64
	UserID     int64
	ShowID     int64
	IsCanceled bool
	CreatedAt  time.Time
}

// SeatOccupancy is the occupancy binding between a seat and a reservation.
// ReservationID is meaningful only when Status is SeatOccupied.
type SeatOccupancy struct {
	SeatID        int64
	Status        OccupancyStatus
	ReservationID int64
}

func (o SeatOccupancy) Occupied() bool { return o.Status == SeatOccupied }

// LedgerEntry is an immutable signed point transaction. ReservationID is nil
// for entries not tied to a reservation (e.g. the signup bonus).
type LedgerEntry struct {
	ID            int64
	UserID        int64
	ReservationID *int64
	Point         int64
	Reason        string
	CreatedAt     time.Time
}

// ShowDetail is the availability projection for a single show. It is derived
// from committed state on every read, never cached.
type ShowDetail struct {
	Show
	RemainingSeats int
	IsBookable     bool
}

type SeatWithStatus struct {
	Seat
	IsReserved bool
}

// UserReservation is a reservation joined with its show and the net sum of
// the ledger entries tagged with it.
type UserReservation struct {
	ID         int64
	ReservedAt time.Time
	IsCanceled bool
	ShowID     int64
	ShowTitle  string
	ShowTime   time.Time
	Point      int64
}

// Profile is the user projection returned by the profile endpoint.
type Profile struct {
	LoginID  string
	Username string
	Point    int64
}
