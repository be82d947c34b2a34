// Package capture owns the camera frame source contract and the
// rate-bounded capture/decode loop.
package capture

import (
	"context"
	"sync"

	"github.com/acrobaticz/bulkscan/internal/domain/model"
)

// Source supplies a continuous sequence of raw frames. A source is
// exclusively owned by one session for its lifetime; Close releases
// the underlying device and must be safe to call multiple times.
type Source interface {
	// Frames returns the live frame channel. The channel is closed
	// when the source is closed or ctx is cancelled.
	Frames(ctx context.Context) <-chan model.Frame

	// Close releases the device handle. Idempotent.
	Close() error
}

// ReplaySource feeds a fixed set of frames, repeating the last one
// until closed. Used by tests and bench rigs; real camera capture is a
// platform adapter implementing the same interface.
type ReplaySource struct {
	frames []model.Frame

	mu        sync.Mutex
	out       chan model.Frame
	closeOnce sync.Once
	closed    chan struct{}
}

// NewReplaySource creates a source that replays the given frames.
func NewReplaySource(frames ...model.Frame) *ReplaySource {
	return &ReplaySource{
		frames: frames,
		closed: make(chan struct{}),
	}
}

// Push appends a frame to the replay set before Frames is consumed.
func (s *ReplaySource) Push(frame model.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
}

func (s *ReplaySource) Frames(ctx context.Context) <-chan model.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.out != nil {
		return s.out
	}
	s.out = make(chan model.Frame)

	go func() {
		defer close(s.out)
		i := 0
		for {
			var frame model.Frame
			s.mu.Lock()
			if len(s.frames) == 0 {
				s.mu.Unlock()
				return
			}
			if i >= len(s.frames) {
				frame = s.frames[len(s.frames)-1]
			} else {
				frame = s.frames[i]
				i++
			}
			s.mu.Unlock()

			select {
			case s.out <- frame:
			case <-ctx.Done():
				return
			case <-s.closed:
				return
			}
		}
	}()
	return s.out
}

// Close stops the frame stream. Idempotent.
func (s *ReplaySource) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}
