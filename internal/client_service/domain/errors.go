package domain

import "errors"

var (
	// ErrNotFound indicates that the client to be updated does not exist.
	ErrNotFound = errors.New("client not found")
	// ErrConstraintViolation indicates the store rejected a write (NOT NULL, length, foreign key).
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrUnknownSearchField indicates a search filter referenced a field outside the allowlist.
	ErrUnknownSearchField = errors.New("unknown search field")
	// ErrEmptySearchFilter indicates a predicate was requested for an empty filter.
	ErrEmptySearchFilter = errors.New("empty search filter")
)
