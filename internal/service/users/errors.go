package users

import "errors"

var (
	ErrDuplicatedIDOrUsername = errors.New("duplicated id or username")
	ErrUserNotFound           = errors.New("user not found")
	ErrPasswordNotMatch       = errors.New("password not match")
)
