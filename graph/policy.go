package graph

import (
	"context"
	"math/rand"
	"time"
)

// NodePolicy configures per-node execution behavior: timeout and retry.
// Unset fields fall back to the driver-wide Options defaults.
type NodePolicy struct {
	Timeout     time.Duration
	RetryPolicy *RetryPolicy
}

// RetryPolicy configures exponential backoff with jitter for transient
// Executor failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

func (p *RetryPolicy) maxAttempts() int {
	if p == nil || p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p *RetryPolicy) shouldRetry(err error) bool {
	if p == nil || p.Retryable == nil {
		return false
	}
	return p.Retryable(err)
}

func (p *RetryPolicy) backoff(attempt int, rng *rand.Rand) time.Duration {
	if p == nil || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	jitter := time.Duration(rng.Int63n(int64(d/2) + 1))
	return d/2 + jitter
}

// sleepCtx sleeps for d or returns early on context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func effectiveTimeout(policy *NodePolicy, def time.Duration) time.Duration {
	if policy != nil && policy.Timeout > 0 {
		return policy.Timeout
	}
	return def
}

func effectiveRetry(policy *NodePolicy, def *RetryPolicy) *RetryPolicy {
	if policy != nil && policy.RetryPolicy != nil {
		return policy.RetryPolicy
	}
	return def
}
