// Package feedback defines the sensory cue sink for scan outcomes.
//
// Implementations map outcomes onto whatever the station hardware
// offers: a beeper, haptics, or just log lines on headless boxes. The
// dispatcher is fire-and-forget; its failures must never reach the
// scan pipeline.
package feedback

import (
	"context"

	"github.com/acrobaticz/bulkscan/pkg/logger"
)

// Dispatcher converts pipeline and ledger outcomes into operator cues.
type Dispatcher interface {
	// Success signals a confirmed scan.
	Success()
	// Warning signals a soft issue such as a duplicate.
	Warning()
	// Error signals an invalid or rejected scan.
	Error()
}

// Noop discards all cues.
type Noop struct{}

func (Noop) Success() {}
func (Noop) Warning() {}
func (Noop) Error()   {}

// Log emits cues as structured log lines, for headless stations.
type Log struct {
	log logger.Logger
}

// NewLog creates a log-backed dispatcher.
func NewLog(log logger.Logger) *Log {
	return &Log{log: log}
}

func (d *Log) Success() {
	d.log.Info(context.Background(), "scan feedback", logger.String("cue", "success"))
}

func (d *Log) Warning() {
	d.log.Warn(context.Background(), "scan feedback", logger.String("cue", "warning"))
}

func (d *Log) Error() {
	d.log.Warn(context.Background(), "scan feedback", logger.String("cue", "error"))
}

// Multi fans each cue out to several dispatchers, e.g. a beeper plus
// log lines.
type Multi struct {
	targets []Dispatcher
}

// NewMulti creates a fan-out dispatcher over the given targets.
func NewMulti(targets ...Dispatcher) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) Success() {
	for _, t := range m.targets {
		t.Success()
	}
}

func (m *Multi) Warning() {
	for _, t := range m.targets {
		t.Warning()
	}
}

func (m *Multi) Error() {
	for _, t := range m.targets {
		t.Error()
	}
}

// Safe wraps a Dispatcher so panics in cue delivery are swallowed.
// The capture loop calls through this wrapper exclusively.
type Safe struct {
	inner Dispatcher
}

// NewSafe wraps d; a nil d behaves like Noop.
func NewSafe(d Dispatcher) *Safe {
	if d == nil {
		d = Noop{}
	}
	return &Safe{inner: d}
}

func (s *Safe) Success() { s.deliver(s.inner.Success) }
func (s *Safe) Warning() { s.deliver(s.inner.Warning) }
func (s *Safe) Error()   { s.deliver(s.inner.Error) }

func (s *Safe) deliver(cue func()) {
	defer func() {
		_ = recover()
	}()
	cue()
}
