// Package breaker gates calls to the GitHub API behind a circuit breaker.
// After a run of consecutive upstream failures the circuit opens and calls
// are rejected fast for a cooldown period instead of hitting a failing
// dependency. Built on sony/gobreaker.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Prometheus metrics for circuit breaker activity.
var (
	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "github_circuit_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
	})

	breakerRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_circuit_breaker_rejections_total",
		Help: "Total requests rejected while the circuit was open",
	})

	breakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_circuit_breaker_transitions_total",
		Help: "Total circuit breaker state transitions by target state",
	}, []string{"to"})
)

// Default breaker parameters.
const (
	// DefaultFailureThreshold is the number of consecutive upstream
	// failures that opens the circuit.
	DefaultFailureThreshold = 5

	// DefaultCooldown is how long the circuit stays open before a single
	// probe request is allowed through.
	DefaultCooldown = 60 * time.Second
)

// OpenError is returned when a call is rejected because the circuit is
// open. RetryAfter carries the remaining cooldown. The call was never
// attempted and the rejection is not counted as a new failure.
type OpenError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open, retry after %.1fs", e.RetryAfter.Seconds())
}

// IsOpenError reports whether err is a circuit-open rejection.
func IsOpenError(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}

// Config holds circuit breaker configuration.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. Zero means DefaultFailureThreshold.
	FailureThreshold uint32

	// Cooldown is the open-state duration before a probe is allowed.
	// Zero means DefaultCooldown.
	Cooldown time.Duration

	// IsUpstreamFailure decides which errors count against the breaker.
	// Errors for which it returns false (for example structural validation
	// errors raised after a successful response) pass through without
	// affecting the failure count. Nil counts every error.
	IsUpstreamFailure func(err error) bool
}

// Breaker wraps sony/gobreaker with the semantics this service needs:
// consecutive-failure tripping, a half-open state that serializes a single
// probe, and rejections that carry the remaining cooldown.
type Breaker struct {
	cb       *gobreaker.CircuitBreaker[struct{}]
	cooldown time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	openedAt time.Time
}

// New creates a circuit breaker for the upstream API.
func New(cfg Config, logger zerolog.Logger) *Breaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = DefaultFailureThreshold
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	isUpstreamFailure := cfg.IsUpstreamFailure
	if isUpstreamFailure == nil {
		isUpstreamFailure = func(error) bool { return true }
	}

	b := &Breaker{
		cooldown: cooldown,
		logger:   logger,
	}

	settings := gobreaker.Settings{
		Name:        "github-api",
		MaxRequests: 1, // one serialized probe in half-open
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isUpstreamFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerTransitionsTotal.WithLabelValues(to.String()).Inc()
			breakerState.Set(stateValue(to))

			if to == gobreaker.StateOpen {
				b.mu.Lock()
				b.openedAt = time.Now()
				b.mu.Unlock()
			}

			b.logger.Warn().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	b.cb = gobreaker.NewCircuitBreaker[struct{}](settings)
	return b
}

// Execute runs fn through the circuit breaker. While the circuit is open it
// returns an *OpenError without invoking fn. Otherwise fn's outcome is
// recorded (subject to the failure classifier) and its error returned
// unchanged.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		retryAfter := b.retryAfter()
		breakerRejectionsTotal.Inc()

		b.logger.Warn().
			Dur("retry_after", retryAfter).
			Msg("Circuit breaker rejected request")

		return &OpenError{RetryAfter: retryAfter}
	}

	return err
}

// State returns the current gobreaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (b *Breaker) ConsecutiveFailures() uint32 {
	return b.cb.Counts().ConsecutiveFailures
}

// retryAfter computes the remaining cooldown since the circuit opened.
func (b *Breaker) retryAfter() time.Duration {
	b.mu.Lock()
	openedAt := b.openedAt
	b.mu.Unlock()

	remaining := b.cooldown - time.Since(openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
