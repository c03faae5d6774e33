package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for every login failure regardless
	// of cause, so callers cannot distinguish a wrong password from an
	// unknown or disabled account.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrMissingToken  = errors.New("auth: missing token")
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrForbidden     = errors.New("auth: forbidden")
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
)
