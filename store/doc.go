// Package store persists users, categories, posts and comments in BadgerDB.
//
// Records are JSON documents under "<kind>:<id>" keys. Secondary index keys
// ("idx:...") map owners to children so counts and per-owner listings only
// walk the keys they need. Listings are sorted in memory; the data set of a
// single community board fits comfortably.
//
// The cache layer never talks to the store directly: queries wrap the read
// methods and actions call the write methods.
package store
