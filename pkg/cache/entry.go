package cache

import "time"

// Entry is the unit of storage shared by both tiers.
//
// Payload is opaque to the engine: callers hand in serialized bytes and get
// the same bytes back. SizeBytes is fixed at insertion time from the payload
// length and drives the tier byte budgets.
type Entry struct {
	Key          string // composite key: "<category>:<caller key>"
	Payload      []byte
	Category     Category
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int64
	SizeBytes    int64
	TTL          time.Duration // 0 means the entry never expires
	Metadata     map[string]any
}

// Expired reports whether the entry's TTL has elapsed at the given instant.
// Entries without a TTL only leave the cache via eviction or invalidation.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.After(e.CreatedAt.Add(e.TTL))
}

// touch records a successful read.
func (e *Entry) touch(now time.Time) {
	e.LastAccessed = now
	e.AccessCount++
}
