// Package cache provides a small bounded key/value cache used by the
// metadata prober and the thumbnail extractor.
//
// The eviction policy is deliberately simple: when the capacity is
// reached the entire cache is cleared. Both consumers recompute values
// idempotently, so correctness never depends on a cache hit.
package cache
