package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_catalog_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Catalog store metrics
var (
	StoreQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_catalog_store_queries_total",
			Help: "Total number of catalog store queries",
		},
		[]string{"operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_catalog_store_query_duration_seconds",
			Help:    "Catalog store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Ingestion pipeline metrics
var (
	IngestRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_catalog_ingest_runs_total",
			Help: "Total number of ingestion runs started",
		},
	)

	IngestFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_catalog_ingest_files_processed_total",
			Help: "Total number of files processed by the ingestion pipeline",
		},
	)

	IngestCancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_catalog_ingest_cancellations_total",
			Help: "Total number of ingestion runs cancelled by supersession",
		},
	)

	IngestErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_catalog_ingest_errors_total",
			Help: "Total number of directory-level ingestion errors",
		},
	)

	IngestRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_catalog_ingest_running",
			Help: "Whether an ingestion run is currently active (1 = running, 0 = idle)",
		},
	)

	IngestLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_catalog_ingest_last_run_duration_seconds",
			Help: "Duration of the last completed ingestion run in seconds",
		},
	)
)

// Prober metrics
var (
	ProbeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_catalog_probe_operations_total",
			Help: "Total number of metadata probe operations",
		},
		[]string{"status"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_catalog_probe_duration_seconds",
			Help:    "Metadata probe duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ProbeCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_catalog_probe_cache_hits_total",
			Help: "Total number of metadata cache hits",
		},
	)
)

// Thumbnail extractor metrics
var (
	ThumbnailOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_catalog_thumbnail_operations_total",
			Help: "Total number of thumbnail extraction operations",
		},
		[]string{"status"},
	)

	ThumbnailDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_catalog_thumbnail_duration_seconds",
			Help:    "Thumbnail extraction duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_catalog_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailWorkersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_catalog_thumbnail_workers_busy",
			Help: "Number of thumbnail workers currently extracting",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_catalog_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_catalog_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)
)
