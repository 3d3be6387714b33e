// Package filesystem provides the folder change watcher that triggers
// automatic re-ingestion, and retry wrappers for filesystem operations
// that recover from NFS stale file handles.
package filesystem
