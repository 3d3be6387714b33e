// Package metrics defines the Prometheus metrics exported by the video
// catalog: HTTP request metrics, catalog store query metrics, ingestion
// pipeline progress, prober and thumbnail extractor timings, and
// filesystem watcher activity.
//
// All metrics are registered with the default registry via promauto and
// exposed on the /metrics endpoint.
package metrics
