package inventory

import "errors"

// Sentinel kinds for inventory client errors.
var (
	// ErrVersionConflict signals the OCC version check failed; the
	// submission pipeline retries these.
	ErrVersionConflict = errors.New("inventory version conflict")

	// ErrUnavailable wraps transport-level failures. Not retried by
	// the live pipeline; the offline queue may pick these up.
	ErrUnavailable = errors.New("inventory backend unavailable")
)

// Rejection is a terminal business rejection from the backend, e.g.
// the item does not belong to the event or is already fully scanned.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return "scan rejected: " + r.Code + ": " + r.Message
}
