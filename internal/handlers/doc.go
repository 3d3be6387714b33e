// Package handlers implements the HTTP API: ingest control, entry
// search and editing, tags, notes, reviews, thumbnails, and health
// probes. Handlers translate between JSON requests and the catalog,
// pipeline, and extractor; they hold no state of their own beyond the
// wiring received at startup.
package handlers
