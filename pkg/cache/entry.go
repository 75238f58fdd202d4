// Package cache provides an in-memory conditional-request cache for GitHub
// API responses. GitHub returns ETags on most GET endpoints and a 304 reply
// to a matching If-None-Match does not count against the rate limit, so
// revalidating cached bodies is effectively free quota. All state is
// per-process and lost on restart.
package cache

import (
	"net/http"
	"time"
)

// Entry is a cached upstream response body plus the validator needed to
// revalidate it.
type Entry struct {
	// Data is the response body.
	Data []byte

	// ETag for conditional requests (If-None-Match).
	ETag string

	// StatusCode of the cached response.
	StatusCode int

	// CachedAt is when the entry was stored.
	CachedAt time.Time
}

// CanRevalidate returns true if the entry carries a validator usable for a
// conditional request.
func (e *Entry) CanRevalidate() bool {
	return e != nil && e.ETag != ""
}

// AddConditionalHeaders adds If-None-Match to the request when the entry
// supports revalidation.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if req == nil || !entry.CanRevalidate() {
		return
	}
	req.Header.Set("If-None-Match", entry.ETag)
}
