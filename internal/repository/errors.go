package repository

import "errors"

var (
	// ErrNotFound is returned when no URL exists for the given short code.
	ErrNotFound = errors.New("url not found")

	// ErrCodeTaken is returned when an insert violates the unique
	// constraint on short_code. The database is the authoritative
	// uniqueness check; any pre-check in the service is advisory.
	ErrCodeTaken = errors.New("short code already taken")
)
