// Package types contains common types shared across the application layers.
package types

// ScanType is the direction of a scan session.
type ScanType string

const (
	ScanTypeCheckout ScanType = "checkout"
	ScanTypeCheckin  ScanType = "checkin"
)

// Valid reports whether t is one of the known scan directions.
func (t ScanType) Valid() bool {
	return t == ScanTypeCheckout || t == ScanTypeCheckin
}

// SessionStatus is the lifecycle state of a scan session.
type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Summary is the session roll-up emitted when a session ends.
type Summary struct {
	TotalQuantity int   `json:"total_quantity"`
	UniqueCount   int   `json:"unique_count"`
	Duplicates    int   `json:"duplicates"`
	DurationMs    int64 `json:"duration_ms"`
}

// Progress is the live snapshot exposed to UI collaborators.
type Progress struct {
	SessionID      string        `json:"session_id"`
	Status         SessionStatus `json:"status"`
	TotalScans     int           `json:"total_scans"`
	TargetQuantity int           `json:"target_quantity"`
	Duplicates     int           `json:"duplicates"`
	Pending        int           `json:"pending"`
}
