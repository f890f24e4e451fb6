package cache

import (
	"errors"
)

// ErrItemTooLarge marks a payload that exceeds a tier's entire byte budget.
// It is logged, never returned: oversized writes degrade to a no-op.
var ErrItemTooLarge = errors.New("item too large for cache")

// Category identifies the kind of data an entry holds. The category selects
// the placement policy (TTL default, priority, compression) for the entry.
type Category string

const (
	CategoryRecognitionResult Category = "recognition"
	CategoryImageProcessed    Category = "image_processed"
	CategorySearchResult      Category = "search"
	CategoryMapData           Category = "map_data"
	CategoryUserData          Category = "user_data"
	CategoryAPIResponse       Category = "api_response"
	CategoryThumbnail         Category = "thumbnail"
	CategoryGeolocation       Category = "geolocation"
)

// Categories lists every known category.
func Categories() []Category {
	return []Category{
		CategoryRecognitionResult,
		CategoryImageProcessed,
		CategorySearchResult,
		CategoryMapData,
		CategoryUserData,
		CategoryAPIResponse,
		CategoryThumbnail,
		CategoryGeolocation,
	}
}

// Strategy is the declared eviction intent for a category.
//
// Only StrategyLRU (memory) and oldest-access eviction (disk) are performed
// today; the other tags are accepted and recorded so per-category strategies
// can be made functional without changing the engine's contract.
type Strategy string

const (
	StrategyLRU      Strategy = "lru"
	StrategyLFU      Strategy = "lfu"
	StrategyTTL      Strategy = "ttl"
	StrategyAdaptive Strategy = "adaptive"
)

// Stats holds a point-in-time snapshot of engine counters.
type Stats struct {
	// Memory tier
	MemoryEntries    int   `json:"memory_entries"`
	MemoryUsageBytes int64 `json:"memory_usage_bytes"`

	// Disk tier
	DiskEntries    int   `json:"disk_entries"`
	DiskUsageBytes int64 `json:"disk_usage_bytes"`

	// Performance counters
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Evictions  int64   `json:"evictions"`
	DiskReads  int64   `json:"disk_reads"`
	DiskWrites int64   `json:"disk_writes"`
	HitRate    float64 `json:"hit_rate"` // hits / (hits + misses)
}
