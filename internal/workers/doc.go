// Package workers provides utilities for determining worker pool sizes
// in containerized environments.
//
// When running in a container, the number of available CPUs may be
// limited by cgroup constraints. Go 1.19+ sets GOMAXPROCS from the
// container CPU limit automatically, while runtime.NumCPU() still
// reports the host machine's count. The helpers here size pools off
// GOMAXPROCS so the application respects its actual allotment.
//
// ForThumbnails additionally applies a floor of four workers and honors
// the THUMBNAIL_WORKERS environment variable for manual overrides.
package workers
