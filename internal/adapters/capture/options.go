package capture

import (
	"time"

	"github.com/acrobaticz/bulkscan/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithTargetFPS bounds how many frames per second reach the decoder.
func WithTargetFPS(fps int) Option {
	return func(l *Loop) {
		if fps > 0 {
			l.targetFPS = fps
		}
	}
}

// WithWarmup sets the window after stream start during which frames
// are skipped while the camera settles.
func WithWarmup(d time.Duration) Option {
	return func(l *Loop) {
		if d >= 0 {
			l.warmup = d
		}
	}
}

// WithTickInterval sets the scheduling cadence of the loop.
func WithTickInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.tickInterval = d
		}
	}
}

// WithStreamLost registers a callback fired when the frame stream
// closes on its own, as opposed to the loop being stopped.
func WithStreamLost(fn func()) Option {
	return func(l *Loop) {
		l.onStreamLost = fn
	}
}

// WithClock injects a clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(log logger.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}
