package store

import "errors"

var (
	// ErrNotFound is returned when a row does not exist or is owned by a
	// different user. Callers cannot distinguish the two cases; that is
	// deliberate.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username already registered")

	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)
