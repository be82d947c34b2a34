package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrNotPending = errors.New("no pending entry for equipment id")
)
