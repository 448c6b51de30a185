package client

import "errors"

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotLoggedIn     = errors.New("not logged in, run `echolater login` first")
)
