package domain

import "errors"

// Repositories wrap these so callers can branch with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
