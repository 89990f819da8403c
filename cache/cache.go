package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonwraymond/postboard/tags"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilStore   = errors.New("cache: store is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Store is a key/value cache with tag-based invalidation.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get never errors; it returns (nil, false) on miss or expiry.
// - Set with ttl <= 0 stores nothing.
// - InvalidateTag removes every entry created with tag, regardless of key.
// - Delete and InvalidateTag are idempotent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []tags.Tag) error
	Delete(ctx context.Context, key string) error
	InvalidateTag(ctx context.Context, tag tags.Tag) error
	Len() int
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
