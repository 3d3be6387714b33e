package workers

import (
	"os"
	"runtime"
	"strconv"
)

// minThumbnailWorkers keeps frame extraction from serializing on small
// machines; extraction is I/O bound and four concurrent ffmpeg decodes
// stay cheap even on two cores.
const minThumbnailWorkers = 4

// Count returns the optimal number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// The limit parameter caps the worker count to prevent resource
// exhaustion. Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
// The limit parameter caps the maximum number of workers.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForThumbnails returns the size of the thumbnail extraction pool:
// I/O-bound sizing with a floor of 4 workers, overridable via the
// THUMBNAIL_WORKERS environment variable.
func ForThumbnails(limit int) int {
	if override := os.Getenv("THUMBNAIL_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := ForIO(limit)
	if workers < minThumbnailWorkers && (limit <= 0 || minThumbnailWorkers <= limit) {
		workers = minThumbnailWorkers
	}
	return workers
}
