package graph

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestRetryPolicy_MaxAttemptsDefaultsToOne(t *testing.T) {
	var nilPolicy *RetryPolicy
	if got := nilPolicy.maxAttempts(); got != 1 {
		t.Errorf("nil policy maxAttempts = %d, want 1", got)
	}
	if got := (&RetryPolicy{MaxAttempts: 0}).maxAttempts(); got != 1 {
		t.Errorf("zero-value maxAttempts = %d, want 1", got)
	}
	if got := (&RetryPolicy{MaxAttempts: 5}).maxAttempts(); got != 5 {
		t.Errorf("maxAttempts = %d, want 5", got)
	}
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	var nilPolicy *RetryPolicy
	if nilPolicy.shouldRetry(errors.New("x")) {
		t.Error("expected nil policy to never retry")
	}
	p := &RetryPolicy{Retryable: func(err error) bool { return err.Error() == "transient" }}
	if !p.shouldRetry(errors.New("transient")) {
		t.Error("expected transient error to be retryable")
	}
	if p.shouldRetry(errors.New("fatal")) {
		t.Error("expected fatal error to not be retryable")
	}
}

func TestRetryPolicy_BackoffRespectsMaxDelay(t *testing.T) {
	p := &RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: 150 * time.Millisecond}
	rng := rand.New(rand.NewSource(1))
	for attempt := 0; attempt < 5; attempt++ {
		d := p.backoff(attempt, rng)
		if d > p.MaxDelay {
			t.Errorf("backoff(%d) = %v, exceeds MaxDelay %v", attempt, d, p.MaxDelay)
		}
	}
}

func TestRetryPolicy_BackoffZeroWhenNoBaseDelay(t *testing.T) {
	var nilPolicy *RetryPolicy
	rng := rand.New(rand.NewSource(1))
	if d := nilPolicy.backoff(0, rng); d != 0 {
		t.Errorf("expected zero backoff for nil policy, got %v", d)
	}
}

func TestSleepCtx_ZeroDurationReturnsImmediately(t *testing.T) {
	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Errorf("sleepCtx(0) = %v, want nil", err)
	}
}

func TestSleepCtx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Second); err == nil {
		t.Error("expected cancellation to return an error")
	}
}

func TestEffectiveTimeout(t *testing.T) {
	if got := effectiveTimeout(nil, 5*time.Second); got != 5*time.Second {
		t.Errorf("effectiveTimeout(nil) = %v, want default", got)
	}
	policy := &NodePolicy{Timeout: 2 * time.Second}
	if got := effectiveTimeout(policy, 5*time.Second); got != 2*time.Second {
		t.Errorf("effectiveTimeout = %v, want override", got)
	}
}

func TestEffectiveRetry(t *testing.T) {
	def := &RetryPolicy{MaxAttempts: 1}
	if got := effectiveRetry(nil, def); got != def {
		t.Error("expected nil policy to fall back to default retry policy")
	}
	override := &RetryPolicy{MaxAttempts: 3}
	policy := &NodePolicy{RetryPolicy: override}
	if got := effectiveRetry(policy, def); got != override {
		t.Error("expected explicit policy retry to override default")
	}
}
