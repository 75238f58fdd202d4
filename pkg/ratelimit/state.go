// Package ratelimit tracks the GitHub API rate limit and paces outgoing
// requests. It consumes the X-RateLimit-Remaining and X-RateLimit-Reset
// response headers and suspends callers when the quota is nearly exhausted.
package ratelimit

import (
	"time"
)

// Default quota parameters for the authenticated GitHub REST API.
const (
	// DefaultCeiling is the per-window request quota GitHub grants an
	// authenticated token.
	DefaultCeiling = 5000

	// DefaultThreshold is the remaining-quota level at or below which the
	// limiter sleeps until the window resets.
	DefaultThreshold = 10
)

// State represents the current rate limit window as reported by GitHub.
type State struct {
	// Remaining is the number of requests left in the current window.
	// Never negative in observable state.
	Remaining int `json:"remaining"`

	// ResetAt is when the current window resets, from X-RateLimit-Reset
	// (epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last overwritten from response
	// headers.
	LastUpdate time.Time `json:"last_update"`
}

// NearExhaustion returns true if the remaining quota is at or below the
// given threshold.
func (s *State) NearExhaustion(threshold int) bool {
	return s.Remaining <= threshold
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}
