// Package decode defines the code decoder contract.
//
// Symbol decoding itself is a black-box dependency supplied by the
// station build; this package owns the contract and the corruption
// guard around it.
package decode

import (
	"github.com/acrobaticz/bulkscan/internal/domain/model"
	"github.com/acrobaticz/bulkscan/pkg/metrics"
)

// Decoder turns a raw frame into an optional payload string.
// Implementations are pure and synchronous: no history, no side
// effects, single orientation only (no inversion pass, scanning
// stations run on low-power hardware).
type Decoder interface {
	// Decode returns the payload and true when a code was found.
	Decode(frame model.Frame) (string, bool)
}

// Func adapts a plain function to the Decoder interface.
type Func func(frame model.Frame) (string, bool)

func (f Func) Decode(frame model.Frame) (string, bool) {
	return f(frame)
}

// Safe wraps a Decoder so a panic on a corrupted frame is treated as
// "no code found" instead of tearing down the capture loop.
type Safe struct {
	inner Decoder
}

// NewSafe wraps d with the corruption guard.
func NewSafe(d Decoder) *Safe {
	return &Safe{inner: d}
}

func (s *Safe) Decode(frame model.Frame) (payload string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDecodeError()
			payload, ok = "", false
		}
	}()
	return s.inner.Decode(frame)
}
