// Package server exposes postboard over HTTP.
//
// Reads go through the cached queries, writes through the actions service,
// so every successful write revalidates the cache entries it affects before
// the response is sent. Every JSON body has the shape
//
//	{"success": bool, "data": ..., "message": "...", "error": "...", "code": "..."}
//
// where error and code are set only on failure.
package server
