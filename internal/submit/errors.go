package submit

import "errors"

// Sentinel kinds for submission errors.
var (
	// ErrCallbackRejected is returned when the legacy callback
	// declined the scan without a specific error.
	ErrCallbackRejected = errors.New("scan rejected by callback")

	// ErrQueueFull signals the offline sync queue is at capacity.
	ErrQueueFull = errors.New("sync queue full")
)
