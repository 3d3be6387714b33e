// Package mediatypes provides shared type definitions and utilities for media
// file handling across the video catalog.
//
// This package exists as a dependency-free foundation that can be imported by
// other packages without creating import cycles. It contains the supported
// video extension set, MIME type lookups, and pure utility functions with no
// dependencies beyond the standard library.
//
// # Extension Detection
//
// Use IsSupportedMedia to decide whether a path names a catalogable video:
//
//	if mediatypes.IsSupportedMedia(path) {
//	    // Handle video
//	}
//
// Matching is case-insensitive; ".MP4" and ".mp4" are equivalent.
//
// # MIME Types
//
// Use GetMimeType to get the appropriate MIME type for HTTP responses:
//
//	ext := strings.ToLower(filepath.Ext(filename))
//	mimeType := mediatypes.GetMimeType(ext) // e.g., "video/mp4"
package mediatypes
