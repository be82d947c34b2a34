package ledger

import "time"

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithRecentLimit bounds the most-recent-first confirmed items view.
func WithRecentLimit(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.recentLimit = n
		}
	}
}

// WithClock injects a clock, used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}
