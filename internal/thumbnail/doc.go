// Package thumbnail extracts representative preview frames from video
// files using FFmpeg and scales them to fit a target size.
//
// Extraction never fails hard: an unopenable file or unreadable frame
// yields a solid placeholder of the requested size. A bounded worker
// pool serves asynchronous requests so extractions for unrelated files
// proceed concurrently without unbounded resource use.
package thumbnail
