package common

import "errors"

var (
	// Returned by repositories, passed through by services.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// ErrorValidation is wrapped with the offending field, e.g.
	// fmt.Errorf("%w: limit must be 1..100", ErrorValidation).
	ErrorValidation        = errors.New("validation error")
	ErrorFileTooLarge      = errors.New("file too large")
	ErrorUnsupportedFormat = errors.New("unsupported format")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")

	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	ErrTranscriptionFailed      = errors.New("audio transcription failed")
	ErrTranscriptionUnavailable = errors.New("transcription temporarily unavailable")
)
