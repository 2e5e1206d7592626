package reservation

import "errors"

var (
	ErrSeatNotFound               = errors.New("seat not found")
	ErrNotEnoughPoint             = errors.New("not enough point")
	ErrSeatAlreadyReserved        = errors.New("seat already reserved")
	ErrSeatNotInSameShow          = errors.New("seats not in the same show")
	ErrShowAlreadyStarted         = errors.New("show already started")
	ErrReservationNotFound        = errors.New("reservation not found")
	ErrReservationAlreadyCanceled = errors.New("reservation already canceled")
	ErrNotAuthorized              = errors.New("not authorized")
)
