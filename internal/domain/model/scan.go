// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/acrobaticz/bulkscan/internal/domain/types"
)

// SubmissionStatus tracks where a scanned item sits in the pipeline.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionConfirmed SubmissionStatus = "confirmed"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// ScannedItem is one accepted equipment scan inside a session.
type ScannedItem struct {
	EquipmentID string
	EventID     string
	Quantity    int
	ScannedAt   time.Time
	Status      SubmissionStatus
}

// ScanMeta travels with a submission to the inventory backend.
type ScanMeta struct {
	ScanType  types.ScanType
	EventID   string
	Timestamp time.Time
}

// Frame is one raw video frame handed from the capture source to the
// decoder. Pixels layout is decoder-defined; the engine never inspects it.
type Frame struct {
	Pixels []byte
	Width  int
	Height int
}

// AttemptOutcome classifies a single submission attempt.
type AttemptOutcome string

const (
	OutcomeSuccess         AttemptOutcome = "success"
	OutcomeVersionConflict AttemptOutcome = "version_conflict"
	OutcomeError           AttemptOutcome = "error"
)

// SubmissionAttempt is a diagnostic record of one attempt against the
// inventory endpoint. Not persisted beyond the session.
type SubmissionAttempt struct {
	EquipmentID string
	Attempt     int
	VersionUsed int64
	Outcome     AttemptOutcome
	Err         error
}
