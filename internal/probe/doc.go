// Package probe extracts intrinsic media properties (dimensions, frame
// rate, duration, frame count, size, timestamps) from video files using
// ffprobe, without decoding the stream.
//
// Probing fails soft: a nonexistent path returns an error, but an
// existing file that cannot be opened or that under-reports its
// properties yields a heuristic fallback record (default 1280x720,
// 30fps, 60s) so ingestion never halts on one bad file. Successful
// results are cached by path with bounded capacity.
package probe
