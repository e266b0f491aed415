package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken is returned when creating a user whose email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSessionNotFound is returned when a refresh session is unknown, used or revoked.
	ErrSessionNotFound = errors.New("refresh session not found")
)
