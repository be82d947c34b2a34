// Package submit implements the conflict-aware submission pipeline:
// a retry policy for optimistic-concurrency races and the submitters
// that commit accepted scans against the inventory backend.
package submit

import "time"

// Default retry tuning. Conflicts between simultaneous operators
// resolve within a few hundred milliseconds, so a short capped
// geometric backoff is enough.
const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 300 * time.Millisecond
	defaultMaxDelay     = 2 * time.Second
	defaultMultiplier   = 1.5
)

// RetryPolicy describes how version conflicts are retried. It is
// transport-agnostic: the submitter supplies the retryable predicate.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy returns the tuning used by scan stations.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
	}
}

// Delay returns the wait before the attempt following the given
// one-based attempt number: initial * multiplier^(attempt-1), capped.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if capped := float64(p.MaxDelay); d > capped {
		d = capped
	}
	return time.Duration(d)
}

// normalize fills zero fields with defaults.
func (p RetryPolicy) normalize() RetryPolicy {
	out := p
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = defaultMaxAttempts
	}
	if out.InitialDelay <= 0 {
		out.InitialDelay = defaultInitialDelay
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = defaultMaxDelay
	}
	if out.Multiplier <= 1 {
		out.Multiplier = defaultMultiplier
	}
	return out
}
