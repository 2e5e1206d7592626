package httpgin

import (
	"time"

	"github.com/yeonsu-dev/stagepass/internal/domain"
)

type RegisterRequest struct {
	LoginID  string `json:"login_id" binding:"required,alphanum,min=6,max=15"`
	Password string `json:"password" binding:"required,min=8,max=15"`
	Username string `json:"username" binding:"required,min=2,max=15"`
}

type LoginRequest struct {
	LoginID  string `json:"login_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ProfileResponse struct {
	LoginID  string `json:"login_id"`
	Username string `json:"username"`
	Point    int64  `json:"point"`
}

type SeatGroupInput struct {
	Count int    `json:"count" binding:"required,gt=0"`
	Grade string `json:"grade" binding:"required"`
	Price int64  `json:"price" binding:"required,gte=0"`
}

type CreateShowRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	SeatGroups  []SeatGroupInput `json:"seat_groups" binding:"required,min=1,dive"`
	ShowTimes   []string         `json:"show_times" binding:"required,min=1,dive,required"`
}

type ShowResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ShowTime    string `json:"show_time"`
	MaxSeats    int    `json:"max_seats"`
}

type ShowDetailResponse struct {
	ShowResponse
	RemainingSeats int  `json:"remaining_seats"`
	IsBookable     bool `json:"is_bookable"`
}

type SeatResponse struct {
	ID         int64  `json:"id"`
	SeatNumber int    `json:"seat_number"`
	Grade      string `json:"grade"`
	Price      int64  `json:"price"`
	IsReserved bool   `json:"is_reserved"`
}

type ReserveSeatsRequest struct {
	SeatIDs []int64 `json:"seat_ids" binding:"required,min=1,dive,required"`
}

type ReservationResponse struct {
	ReservationID int64 `json:"reservation_id"`
	ShowID        int64 `json:"show_id"`
}

type UserReservationResponse struct {
	ID         int64  `json:"id"`
	ReservedAt string `json:"reservation_time"`
	IsCanceled bool   `json:"is_canceled"`
	ShowID     int64  `json:"show_id"`
	ShowTitle  string `json:"show_title"`
	ShowTime   string `json:"show_time"`
	Point      int64  `json:"point"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// localTime renders a stored UTC timestamp in the server's local zone.
// Storage stays in a fixed zone; this conversion happens only here, at the
// read boundary.
func localTime(t time.Time) string {
	return t.Local().Format(time.RFC3339)
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func toShowResponse(s domain.Show) ShowResponse {
	return ShowResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		ShowTime:    localTime(s.ShowTime),
		MaxSeats:    s.MaxSeats,
	}
}
