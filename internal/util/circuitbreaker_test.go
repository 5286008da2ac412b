package util

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestBreaker(threshold int, timeout time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", threshold, timeout, zap.NewNop())
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)

	cb.RecordFailure()
	if !cb.CanExecute() {
		t.Fatalf("expected circuit to stay closed below threshold")
	}

	cb.RecordFailure()
	if cb.CanExecute() {
		t.Fatalf("expected circuit to open at threshold")
	}
	if got := cb.RetryAfter(); got != time.Minute {
		t.Fatalf("expected retry after 1m, got %v", got)
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb, now := newTestBreaker(1, time.Minute)

	cb.RecordFailure()
	if cb.State() != CircuitStateOpen {
		t.Fatalf("expected OPEN, got %s", cb.State())
	}

	*now = now.Add(time.Minute)
	if cb.State() != CircuitStateHalfOpen {
		t.Fatalf("expected HALF_OPEN after timeout, got %s", cb.State())
	}

	cb.RecordSuccess()
	if cb.State() != CircuitStateClosed {
		t.Fatalf("expected CLOSED after success, got %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordFailure()
	*now = now.Add(2 * time.Minute)
	if cb.State() != CircuitStateHalfOpen {
		t.Fatalf("expected HALF_OPEN, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitStateOpen {
		t.Fatalf("expected single half-open failure to reopen, got %s", cb.State())
	}
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	if !cb.CanExecute() {
		t.Fatalf("expected non-consecutive failures to keep circuit closed")
	}
}
