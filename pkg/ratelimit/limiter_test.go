package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLimiter() *Limiter {
	return NewLimiter(DefaultThreshold, DefaultCeiling, zerolog.Nop())
}

func TestLimiter_WaitNoSleepWithQuota(t *testing.T) {
	l := newTestLimiter()
	l.sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatalf("unexpected sleep of %v with full quota", d)
		return nil
	}

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}

func TestLimiter_WaitSleepsUntilReset(t *testing.T) {
	l := newTestLimiter()

	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	resetAt := base.Add(45 * time.Second)
	l.now = func() time.Time { return base }

	var slept time.Duration
	l.sleep = func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "10")
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	l.UpdateFromHeaders(headers)

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if slept != 45*time.Second {
		t.Errorf("slept %v, want 45s", slept)
	}

	// The window reset restores the full quota.
	if got := l.Snapshot().Remaining; got != DefaultCeiling {
		t.Errorf("Remaining after reset = %d, want %d", got, DefaultCeiling)
	}
}

func TestLimiter_WaitSkipsSleepWhenResetPassed(t *testing.T) {
	l := newTestLimiter()
	l.state.Remaining = 0
	l.state.ResetAt = time.Now().Add(-time.Minute)
	l.sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatalf("unexpected sleep of %v for elapsed window", d)
		return nil
	}

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got := l.Snapshot().Remaining; got != DefaultCeiling {
		t.Errorf("Remaining = %d, want %d", got, DefaultCeiling)
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := newTestLimiter()
	l.state.Remaining = 5
	l.state.ResetAt = time.Now().Add(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait with canceled context = %v, want context.Canceled", err)
	}
}

func TestLimiter_UpdateFromHeaders(t *testing.T) {
	l := newTestLimiter()

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "42")
	headers.Set("X-RateLimit-Reset", "1787572800")
	l.UpdateFromHeaders(headers)

	state := l.Snapshot()
	if state.Remaining != 42 {
		t.Errorf("Remaining = %d, want 42", state.Remaining)
	}
	if !state.ResetAt.Equal(time.Unix(1787572800, 0)) {
		t.Errorf("ResetAt = %v, want %v", state.ResetAt, time.Unix(1787572800, 0))
	}
}

func TestLimiter_UpdateFromHeaders_LastWriterWins(t *testing.T) {
	l := newTestLimiter()

	first := http.Header{}
	first.Set("X-RateLimit-Remaining", "100")
	l.UpdateFromHeaders(first)

	second := http.Header{}
	second.Set("X-RateLimit-Remaining", "250")
	l.UpdateFromHeaders(second)

	if got := l.Snapshot().Remaining; got != 250 {
		t.Errorf("Remaining = %d, want 250 (last writer)", got)
	}
}

func TestLimiter_UpdateFromHeaders_Malformed(t *testing.T) {
	l := newTestLimiter()
	before := l.Snapshot()

	tests := []struct {
		name    string
		headers http.Header
	}{
		{"absent", http.Header{}},
		{"non-numeric remaining", http.Header{"X-Ratelimit-Remaining": {"lots"}}},
		{"non-numeric reset", http.Header{"X-Ratelimit-Reset": {"soon"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l.UpdateFromHeaders(tt.headers)
			after := l.Snapshot()
			if after.Remaining != before.Remaining {
				t.Errorf("Remaining changed to %d on malformed headers", after.Remaining)
			}
			if !after.ResetAt.Equal(before.ResetAt) {
				t.Errorf("ResetAt changed to %v on malformed headers", after.ResetAt)
			}
		})
	}
}

func TestLimiter_UpdateFromHeaders_NegativeFloorsToZero(t *testing.T) {
	l := newTestLimiter()

	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "-3")
	l.UpdateFromHeaders(headers)

	if got := l.Snapshot().Remaining; got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}
