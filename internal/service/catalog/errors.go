package catalog

import "errors"

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidShowTime = errors.New("invalid show time")
	ErrNoSeatGroups    = errors.New("no seat groups")
	ErrShowNotFound    = errors.New("show not found")
)
