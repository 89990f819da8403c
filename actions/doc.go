// Package actions implements the board's mutations.
//
// Every action validates its input, checks the actor's rights, writes to the
// store and, only once the write has succeeded, revalidates the cache tags
// and route paths that could now serve stale data. Revalidation runs before
// the action returns, so a read issued after a successful mutation misses
// the cache. Revalidation failures are logged by the invalidator and never
// fail the action.
package actions
