// Package cache provides tag-indexed caching for read queries.
//
// A Store keeps encoded values under string keys together with the set of
// tags each entry was created with. Invalidating a tag drops every entry that
// carries it. Query wraps a fetch function with a key, tags and a revalidate
// duration; Invalidator is the entry point mutations use after a successful
// write.
package cache
