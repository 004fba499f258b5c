package models

import "errors"

var (
	// store errors
	ErrNotFound          = errors.New("not found")
	ErrEmailTaken        = errors.New("email already in use")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrUnknownEvent      = errors.New("event not found")
	ErrUnknownIdentity   = errors.New("user not found")

	// auth errors
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")

	// request errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidStatus = errors.New("invalid registration status")
)
