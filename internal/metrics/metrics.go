package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Source listing metrics
var (
	ListingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_listings_total",
			Help: "Total number of media source listings",
		},
		[]string{"source_type", "status"},
	)

	ListingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_listing_duration_seconds",
			Help:    "Media source listing duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source_type"},
	)

	ListingItemsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_listing_items_returned",
			Help:    "Number of media items returned per listing",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"source_type"},
	)
)

// Cache metrics
var (
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_cache_operations_total",
			Help: "Total number of cache operations by cache, operation and outcome",
		},
		[]string{"cache", "operation", "status"},
	)

	CacheEntriesSwept = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_cache_entries_swept_total",
			Help: "Total number of stale cache entries removed",
		},
		[]string{"cache"},
	)
)

// Optimization metrics
var (
	OptimizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_optimizations_total",
			Help: "Total number of image optimization attempts",
		},
		[]string{"status"},
	)

	OptimizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_optimization_duration_seconds",
			Help:    "Single image optimization duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	OptimizationBytesSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_optimization_bytes_saved_total",
			Help: "Total bytes saved by image optimization",
		},
	)
)

// Metadata extraction metrics
var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_metadata_extractions_total",
			Help: "Total number of EXIF metadata extraction attempts",
		},
		[]string{"status"}, // "found", "empty"
	)
)
