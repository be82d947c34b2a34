package app

import "errors"

// Sentinel kinds for session controller errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrNotIdle           = errors.New("session already started")
	ErrNotActive         = errors.New("session not active")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidScanType   = errors.New("scan type must be checkout or checkin")
	ErrMissingEventID    = errors.New("event id is required")
	ErrInvalidTarget     = errors.New("target quantity must not be negative")
	ErrNoEndpoint        = errors.New("no inventory endpoint configured")
	ErrNoCloseRequested  = errors.New("no close confirmation pending")
	ErrCameraUnavailable = errors.New("camera unavailable")
)
