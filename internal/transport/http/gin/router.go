package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeonsu-dev/stagepass/internal/auth"
	"github.com/yeonsu-dev/stagepass/internal/domain"
	redisrepo "github.com/yeonsu-dev/stagepass/internal/repository/redis"
	"github.com/yeonsu-dev/stagepass/internal/service"
	"github.com/yeonsu-dev/stagepass/internal/service/catalog"
	"github.com/yeonsu-dev/stagepass/internal/service/query"
	"github.com/yeonsu-dev/stagepass/internal/service/reservation"
	"github.com/yeonsu-dev/stagepass/internal/service/users"
)

const idemLockTTL = 30 * time.Second

type Router struct {
	services *service.Services
	idem     *redisrepo.IdempotencyStore
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

func NewRouter(
	services *service.Services,
	idem *redisrepo.IdempotencyStore,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *gin.Engine {
	rt := &Router{services: services, idem: idem, tokens: tokens, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(CORS())
	r.Use(LoggingMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, MessageResponse{Message: "ok"})
	})

	authed := AuthMiddleware(tokens)

	u := r.Group("/users")
	{
		u.POST("/register", rt.handleRegister)
		u.POST("/login", rt.handleLogin)
		u.GET("/profile", authed, rt.handleProfile)
	}

	s := r.Group("/shows")
	{
		s.GET("", rt.handleListShows)
		s.GET("/search", rt.handleSearchShows)
		s.GET("/:id", rt.handleShowDetail)
		s.GET("/:id/seats", rt.handleShowSeats)
		s.POST("", authed, rt.handleCreateShow)
	}

	res := r.Group("/reservations", authed)
	{
		res.POST("", rt.handleReserveSeats)
		res.GET("", rt.handleListReservations)
		res.DELETE("/:id", rt.handleCancelReservation)
	}

	return r
}

func (rt *Router) handleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST"})
		return
	}

	token, err := rt.services.Users.Register(c.Request.Context(), req.LoginID, req.Password, req.Username)
	if err != nil {
		rt.respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, TokenResponse{Token: token})
}

func (rt *Router) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST"})
		return
	}

	token, err := rt.services.Users.Login(c.Request.Context(), req.LoginID, req.Password)
	if err != nil {
		rt.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (rt *Router) handleProfile(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "UNAUTHORIZED"})
		return
	}

	profile, err := rt.services.Users.Profile(c.Request.Context(), p.ID)
	if err != nil {
		rt.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		LoginID:  profile.LoginID,
		Username: profile.Username,
		Point:    profile.Point,
	})
}

func (rt *Router) handleListShows(c *gin.Context) {
	shows, err := rt.services.Catalog.ListShows(c.Request.Context())
	if err != nil {
		rt.respondErr(c, err)
		return
	}

	out := make([]ShowResponse, 0, len(shows))
	for _, s := range shows {
		out = append(out, toShowResponse(s))
	}

	writeJSONWithCache(c, http.StatusOK, out, "public, max-age=5")
}

func (rt *Router) handleSearchShows(c *gin.Context) {
	keyword := c.Query("keyword")

	shows, err := rt.services.Catalog.SearchShows(c.Request.Context(), keyword)
	if err != nil {
		rt.respondErr(c, err)
		return
	}

	out := make([]ShowResponse, 0, len(shows))
	for _, s := range shows {
		out = append(out, toShowResponse(s))
	}

	c.JSON(http.StatusOK, out)
}

func (rt *Router) handleShowDetail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST"})
		return
	}

	detail, err := rt.services.Query.ShowDetail(c.Request.Context(), id)
	if err != nil {
		rt.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, ShowDetailResponse{
		ShowResponse:   toShowResponse(detail.Show),
		RemainingSeats: detail.RemainingSeats,
		IsBookable:     detail.IsBookable,
	})
}

func (rt *Router) handleShowSeats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST"})
		return
	}

	seats, err := rt.services.Query.ShowSeats(c.Request.Context(), id)
	if err != nil {
		rt.respondErr(c, err)
		return
	}

	out := make([]SeatResponse, 0, len(seats))
	for _, s := range seats {
		out = append(out, SeatResponse{
			ID:         s.ID,
			SeatNumber: s.SeatNumber,
			Grade:      s.Grade,
			Price:      s.Price,
			IsReserved: s.IsReserved,
		})
	}

	c.JSON(http.StatusOK, out)
}

func (rt *Router) handleCreateShow(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "UNAUTHORIZED"})
		return
	}

	var req CreateShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST"})
		return
	}

	times := make([]time.Time, 0, len(req.ShowTimes))
	for _, s := range req.ShowTimes {
		t, err := parseRFC3339(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_SHOW_TIME"})
			return
		}
		times = append(times, t)
	}

	groups := make([]domain.SeatGroup, 0, len(req.SeatGroups))
	for _, g := range req.SeatGroups {
		groups = append(groups, domain.SeatGroup{
			Count: g.Count,
			Grade: g.Grade,
			Price: g.Price,
		})
	}

	created, err := rt.services.Catalog.CreateShow(c.Request.Context(), p.ID, req.Title, req.Description, groups, times)
	if err != nil {
		rt.respondErr(c, err)
		return
	}

	out := make([]ShowResponse, 0, len(created))
	for _, s := range created {
		out = append(out, toShowResponse(s))
	}

	c.JSON(http.StatusCreated, out)
}

// handleReserveSeats creates a reservation. When the client sends an
// Idempotency-Key header the response is recorded in redis under a key
// scoped to the user, so retries of the same request replay the original
// response instead of reserving twice.
func (rt *Router) handleReserveSeats(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "UNAUTHORIZED"})
		return
	}

	var req ReserveSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST"})
		return
	}

	ctx := c.Request.Context()

	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	var storeKey string

	if rt.idem != nil && idemKey != "" {
		storeKey = redisrepo.KeyIdemReservation(p.ID, idemKey)

		if payload, found, err := rt.idem.GetResult(ctx, storeKey); err == nil && found {
			var cached ReservationResponse
			if json.Unmarshal([]byte(payload), &cached) == nil {
				c.JSON(http.StatusCreated, cached)
				return
			}
		}

		acquired, err := rt.idem.AcquireLock(ctx, storeKey, idemLockTTL)
		if err != nil {
			rt.respondErr(c, err)
			return
		}
		if !acquired {
			if payload, found, err := rt.idem.GetResult(ctx, storeKey); err == nil && found {
				var cached ReservationResponse
				if json.Unmarshal([]byte(payload), &cached) == nil {
					c.JSON(http.StatusCreated, cached)
					return
				}
			}
			c.JSON(http.StatusConflict, ErrorResponse{Error: "REQUEST_IN_PROGRESS"})
			return
		}
	}

	res, err := rt.services.Reservation.ReserveSeats(ctx, p.ID, req.SeatIDs, strconv.FormatInt(p.ID, 10))
	if err != nil {
		if storeKey != "" {
			_ = rt.idem.Release(ctx, storeKey)
		}
		rt.respondErr(c, err)
		return
	}

	resp := ReservationResponse{ReservationID: res.ID, ShowID: res.ShowID}

	if storeKey != "" {
		if payload, err := json.Marshal(resp); err == nil {
			if err := rt.idem.SaveResult(ctx, storeKey, string(payload)); err != nil {
				rt.logger.Warn("idempotency save failed", slog.Any("error", err))
			}
		}
	}

	c.JSON(http.StatusCreated, resp)
}

func (rt *Router) handleListReservations(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "UNAUTHORIZED"})
		return
	}

	list, err := rt.services.Reservation.ListByUser(c.Request.Context(), p.ID)
	if err != nil {
		rt.respondErr(c, err)
		return
	}

	out := make([]UserReservationResponse, 0, len(list))
	for _, r := range list {
		out = append(out, UserReservationResponse{
			ID:         r.ID,
			ReservedAt: localTime(r.ReservedAt),
			IsCanceled: r.IsCanceled,
			ShowID:     r.ShowID,
			ShowTitle:  r.ShowTitle,
			ShowTime:   localTime(r.ShowTime),
			Point:      r.Point,
		})
	}

	c.JSON(http.StatusOK, out)
}

func (rt *Router) handleCancelReservation(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "UNAUTHORIZED"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST"})
		return
	}

	if err := rt.services.Reservation.CancelReservation(c.Request.Context(), p.ID, id); err != nil {
		rt.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "canceled"})
}

// respondErr maps service errors to HTTP responses. Anything unmapped is a
// 500 with a generic body; the underlying error is logged, never echoed.
func (rt *Router) respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, users.ErrDuplicatedIDOrUsername):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "DUPLICATED_ID_OR_USERNAME"})
	case errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "USER_NOT_FOUND"})
	case errors.Is(err, users.ErrPasswordNotMatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "PASSWORD_NOT_MATCH"})

	case errors.Is(err, catalog.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "UNAUTHORIZED"})
	case errors.Is(err, catalog.ErrInvalidShowTime):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_SHOW_TIME"})
	case errors.Is(err, catalog.ErrNoSeatGroups):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_REQUEST"})
	case errors.Is(err, catalog.ErrShowNotFound), errors.Is(err, query.ErrShowNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "SHOW_NOT_FOUND"})

	case errors.Is(err, reservation.ErrSeatNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "SEAT_NOT_FOUND"})
	case errors.Is(err, reservation.ErrNotEnoughPoint):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "NOT_ENOUGH_POINT"})
	case errors.Is(err, reservation.ErrSeatAlreadyReserved):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "SEAT_ALREADY_RESERVED"})
	case errors.Is(err, reservation.ErrSeatNotInSameShow):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "SEAT_NOT_IN_SAME_SHOW"})
	case errors.Is(err, reservation.ErrShowAlreadyStarted):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "SHOW_ALREADY_STARTED"})
	case errors.Is(err, reservation.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "RESERVATION_NOT_FOUND"})
	case errors.Is(err, reservation.ErrReservationAlreadyCanceled):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "RESERVATION_ALREADY_CANCELED"})
	case errors.Is(err, reservation.ErrNotAuthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "NOT_AUTHORIZED"})

	case isRateLimitedErr(err):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "TOO_MANY_REQUESTS"})

	default:
		rt.logger.Error("unhandled error", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "INTERNAL_ERROR"})
	}
}

func isRateLimitedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "rate limited")
}
