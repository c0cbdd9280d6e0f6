package service

import (
	"errors"

	"snaplink-be/internal/repository"
)

var (
	// ErrNotFound covers both absent and expired short codes so that
	// callers cannot distinguish an expired link from one that never
	// existed.
	ErrNotFound = repository.ErrNotFound

	// ErrCodeTaken is returned when the requested custom code (or, after
	// retries, a generated one) is already in use.
	ErrCodeTaken = repository.ErrCodeTaken

	// ErrForbidden is returned when the caller may not delete the URL.
	ErrForbidden = errors.New("not allowed to modify this url")

	// Validation errors, surfaced as client errors and never retried.
	ErrInvalidURL        = errors.New("invalid url: must include a scheme and be at most 2048 characters")
	ErrInvalidCustomCode = errors.New("invalid custom code: must be 3-10 letters, digits, underscores or hyphens")
	ErrReservedCode      = errors.New("custom code is reserved")
	ErrExpiresInPast     = errors.New("expiration date must be in the future")
)
