package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit pacing.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "github_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	})

	rateLimitSleepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_rate_limit_sleeps_total",
		Help: "Total number of pacing sleeps taken while waiting for a window reset",
	})
)

// Limiter paces outgoing requests against the GitHub rate limit.
//
// A single Limiter is shared by all concurrent requests in the process.
// All pacing decisions are serialized on the internal mutex: concurrent
// callers queue, one performs the sleep, and the rest observe the refreshed
// state when their turn comes.
type Limiter struct {
	mu        sync.Mutex
	state     State
	threshold int
	ceiling   int
	logger    zerolog.Logger

	// now and sleep are replaceable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a limiter with the given pacing threshold and
// per-window ceiling. Non-positive values fall back to the GitHub defaults.
func NewLimiter(threshold, ceiling int, logger zerolog.Logger) *Limiter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	return &Limiter{
		state: State{
			Remaining:  ceiling,
			ResetAt:    time.Now().Add(time.Hour),
			LastUpdate: time.Now(),
		},
		threshold: threshold,
		ceiling:   ceiling,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Wait gates a single outgoing request. If the remaining quota is at or
// below the threshold it suspends the caller until the window resets, then
// restores the remaining count to the ceiling. Returns early with the
// context error if the context is done during the sleep.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.state.NearExhaustion(l.threshold) {
		return nil
	}

	wait := l.state.ResetAt.Sub(l.now())
	if wait > 0 {
		l.logger.Warn().
			Int("remaining", l.state.Remaining).
			Dur("wait", wait).
			Time("reset_at", l.state.ResetAt).
			Msg("Rate limit nearly exhausted, waiting for window reset")

		rateLimitSleepsTotal.Inc()
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}

	l.state.Remaining = l.ceiling
	rateLimitRemaining.Set(float64(l.ceiling))

	return nil
}

// UpdateFromHeaders overwrites the limiter state from GitHub rate limit
// response headers. Missing or malformed headers leave the corresponding
// field untouched. Last writer wins; responses racing each other are not
// reconciled because the limiter is advisory pacing, not admission control.
func (l *Limiter) UpdateFromHeaders(headers http.Header) {
	remainStr := headers.Get("X-RateLimit-Remaining")
	resetStr := headers.Get("X-RateLimit-Reset")
	if remainStr == "" && resetStr == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if remainStr != "" {
		if remain, err := strconv.Atoi(remainStr); err == nil {
			if remain < 0 {
				remain = 0
			}
			l.state.Remaining = remain
			rateLimitRemaining.Set(float64(remain))
		}
	}

	if resetStr != "" {
		if reset, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			l.state.ResetAt = time.Unix(reset, 0)
		}
	}

	l.state.LastUpdate = l.now()

	l.logger.Debug().
		Int("remaining", l.state.Remaining).
		Time("reset_at", l.state.ResetAt).
		Msg("Rate limit state updated from response headers")
}

// Snapshot returns a copy of the current state.
func (l *Limiter) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// sleepContext sleeps for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
