package capture

import (
	"context"
	"sync"
	"time"

	"github.com/acrobaticz/bulkscan/internal/adapters/decode"
	"github.com/acrobaticz/bulkscan/pkg/logger"
	"github.com/acrobaticz/bulkscan/pkg/metrics"
)

// Default loop configuration constants.
const (
	defaultTargetFPS    = 15
	defaultWarmup       = 600 * time.Millisecond
	defaultTickInterval = 16 * time.Millisecond // display-refresh cadence
)

// OnDecode receives every successfully decoded payload. It must not
// block: submissions are dispatched asynchronously downstream.
type OnDecode func(ctx context.Context, raw string)

// Loop is the cooperative capture/decode loop. It ticks at display
// cadence but only decodes when the per-frame interval has elapsed,
// keeping decode load bounded on low-power hardware. A warmup window
// suppresses decoding entirely while auto-exposure settles.
type Loop struct {
	source       Source
	decoder      decode.Decoder
	onDecode     OnDecode
	onStreamLost func()

	targetFPS    int
	warmup       time.Duration
	tickInterval time.Duration
	now          func() time.Time

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	log logger.Logger
}

// NewLoop builds a capture loop over source and decoder. The decoder
// is always wrapped with the corruption guard.
func NewLoop(source Source, decoder decode.Decoder, onDecode OnDecode, opts ...Option) *Loop {
	l := &Loop{
		source:       source,
		decoder:      decode.NewSafe(decoder),
		onDecode:     onDecode,
		targetFPS:    defaultTargetFPS,
		warmup:       defaultWarmup,
		tickInterval: defaultTickInterval,
		now:          time.Now,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		log:          logger.Get().Named("capture"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drives the loop until ctx is cancelled or Stop is called. The
// source is released on every exit path.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	defer func() {
		if err := l.source.Close(); err != nil {
			l.log.Warn(ctx, "closing frame source", logger.Error(err))
		}
	}()

	frames := l.source.Frames(ctx)
	minInterval := time.Second / time.Duration(l.targetFPS)
	started := l.now()
	var lastProcessed time.Time

	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		case <-ticker.C:
			now := l.now()
			if now.Sub(started) < l.warmup {
				metrics.RecordFrameSkipped()
				continue
			}
			if now.Sub(lastProcessed) < minInterval {
				metrics.RecordFrameSkipped()
				continue
			}

			// Non-blocking grab: if the source has nothing ready we
			// just reschedule, the loop never waits on capture.
			select {
			case frame, ok := <-frames:
				if !ok {
					// Camera unplugged or the stream died; not a
					// normal teardown, so surface it.
					l.log.Warn(ctx, "frame stream ended unexpectedly")
					if l.onStreamLost != nil {
						l.onStreamLost()
					}
					return
				}
				lastProcessed = now
				metrics.RecordFrameProcessed()
				if raw, found := l.decoder.Decode(frame); found {
					l.onDecode(ctx, raw)
				}
			default:
			}
		}
	}
}

// Stop cancels the loop and waits for teardown. Safe to call multiple
// times and from multiple goroutines.
func (l *Loop) Stop(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.shutdown)
	})

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
