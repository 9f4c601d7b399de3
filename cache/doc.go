// Package cache provides a TTL cache with request coalescing for derived
// response-curve artifacts.
//
// The underlying computation is CPU-bound and takes seconds, so N
// concurrent lookups for the same key must cost one computation, not N.
// Misses are deduplicated through a single-flight group: the first caller
// becomes the leader and computes; everyone else waits on the shared
// result, bounded by a wait timeout. Failed computations are never cached,
// and every caller receives a deep copy of the cached artifact.
package cache
