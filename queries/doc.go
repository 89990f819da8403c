// Package queries builds the cached reads of the board: post listings, a
// single post with its comments, comment threads and user profiles.
//
// Each builder derives a deterministic cache key and the invalidation tags
// from its parameters, then binds the matching Source read to a cache.Query.
package queries
