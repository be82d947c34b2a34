// Package config defines daemon configuration structures and loading.
package config

// Config contains process configuration for the scan station daemon.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// InventoryBaseURL points at the rental backend, e.g.
	// "https://office.example.com".
	InventoryBaseURL string `koanf:"inventory_base_url"`

	// TargetFPS bounds how many frames per second reach the decoder.
	TargetFPS int `koanf:"target_fps"`

	// WarmupMS is the camera settle window after stream start.
	WarmupMS int `koanf:"warmup_ms"`

	// RecentItemsLimit bounds the per-session recent-items view.
	RecentItemsLimit int `koanf:"recent_items_limit"`

	// Version-conflict retry tuning.
	MaxAttempts       int     `koanf:"max_attempts"`
	InitialDelayMS    int     `koanf:"initial_delay_ms"`
	MaxDelayMS        int     `koanf:"max_delay_ms"`
	BackoffMultiplier float64 `koanf:"backoff_multiplier"`

	// CloseGraceMS is the delay between reaching the target and
	// auto-completing the session.
	CloseGraceMS int `koanf:"close_grace_ms"`

	// OfflineQueue parks network-failed scans for periodic re-sync.
	OfflineQueue bool `koanf:"offline_queue"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9090",
		InventoryBaseURL:  "http://localhost:3000",
		TargetFPS:         15,
		WarmupMS:          600,
		RecentItemsLimit:  3,
		MaxAttempts:       3,
		InitialDelayMS:    300,
		MaxDelayMS:        2000,
		BackoffMultiplier: 1.5,
		CloseGraceMS:      500,
		OfflineQueue:      false,
	}
}
