package store

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict indicates a uniqueness constraint was violated. Transaction
	// conflicts are retried internally and never surface as ErrConflict.
	ErrConflict = errors.New("store: conflict")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store: closed")
)
