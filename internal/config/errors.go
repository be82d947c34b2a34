package config

import "errors"

// Sentinel error kinds for this package; callers use errors.Is.
var (
	ErrEmptyAddr         = errors.New("addr must not be empty")
	ErrEmptyInventoryURL = errors.New("inventory_base_url must not be empty")
	ErrInvalidFPS        = errors.New("target_fps must be positive")
	ErrInvalidRetry      = errors.New("max_attempts must be positive")
)
