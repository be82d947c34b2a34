package metrics

import "github.com/prometheus/client_golang/prometheus"

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithSubsystem sets the metric subsystem.
func WithSubsystem(sub string) Option {
	return func(m *Manager) {
		if sub != "" {
			m.subsystem = sub
		}
	}
}

// WithHistogramBuckets overrides the default latency buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers all collectors on the given registerer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}
