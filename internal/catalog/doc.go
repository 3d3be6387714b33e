// Package catalog persists the media catalog in SQLite: one row per
// known file plus the user state attached to it (watched flags, tags,
// notes, reviews). Re-ingesting a folder upserts file facts without
// touching user state.
package catalog
