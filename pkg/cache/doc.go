// Package cache provides a two-tier caching engine for the monument
// recognizer application. It combines a byte-budgeted in-memory LRU tier
// with a persistent, capacity-bounded disk tier (optional zstd compression
// plus a JSON metadata index), per-category placement policies, TTL expiry,
// and a cancellable background maintenance task.
//
// The engine never lets a cache fault reach its callers: disk and codec
// errors are logged and degrade to a miss on read or a no-op on write.
package cache
