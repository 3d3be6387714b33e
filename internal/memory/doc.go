// Package memory configures the Go runtime's soft memory limit from
// container limits, leaving headroom for ffmpeg child processes and
// frame decode buffers that allocate outside the Go heap.
package memory
