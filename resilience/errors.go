package resilience

import "errors"

var (
	// ErrMaxRetriesExceeded wraps the last error once every attempt failed.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrInvalidConfig is returned for a non-positive window or limit.
	ErrInvalidConfig = errors.New("resilience: invalid limiter config")
)
