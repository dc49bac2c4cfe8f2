package connection

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls reconnect pacing. MaxRetries < 0 retries forever.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
}

// DefaultRetryPolicy returns 5 retries from 100ms doubling up to 30s, with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Backoff computes exponential delays for a RetryPolicy.
type Backoff struct {
	policy RetryPolicy
	rand   func() float64
}

// NewBackoff returns a Backoff for policy.
func NewBackoff(policy RetryPolicy) *Backoff {
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	return &Backoff{policy: policy, rand: rand.Float64}
}

// Exhausted reports whether attempt (zero-based count of failures so far) has
// used up the policy.
func (b *Backoff) Exhausted(attempt int) bool {
	return b.policy.MaxRetries >= 0 && attempt >= b.policy.MaxRetries
}

// Delay returns the wait before retry number attempt (zero-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	delay := float64(b.policy.BaseDelay) * math.Pow(b.policy.Multiplier, float64(attempt))
	if b.policy.MaxDelay > 0 && delay > float64(b.policy.MaxDelay) {
		delay = float64(b.policy.MaxDelay)
	}

	if b.policy.Jitter {
		// Up to 25% on top.
		delay += b.rand() * delay * 0.25
	}

	return time.Duration(delay)
}
