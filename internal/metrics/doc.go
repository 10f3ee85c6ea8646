// Package metrics defines the Prometheus metrics exposed by the gallery
// server.
//
// All metrics are registered via promauto at package initialization and are
// served on the dedicated metrics port (METRICS_PORT) by the main process.
// Metric names share the gallery_ prefix.
package metrics
