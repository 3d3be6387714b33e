// Package ingest drives folder ingestion: list a folder's media files,
// announce each one from the catalog (probing and persisting unknown
// files first), extract thumbnails on a bounded pool, and stream the
// results as ordered events. One run is active at a time; loading a new
// folder cancels the previous run after a short grace period.
package ingest
