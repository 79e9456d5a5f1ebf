package service

import "errors"

var (
	// ErrInvalidCode covers unknown, consumed and expired login codes alike
	ErrInvalidCode     = errors.New("invalid login code")
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("not authorized")
	ErrNotFound        = errors.New("not found")
	// ErrSlugExhausted means every slug candidate for a group name is taken
	ErrSlugExhausted = errors.New("no free slug for group name")
)
