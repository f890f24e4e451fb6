package cache

import "time"

// Policy configures how one category of entries is cached.
type Policy struct {
	// TTL is the default time-to-live applied when Set is called without an
	// explicit TTL. 0 means entries of this category never expire.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// Strategy is the declared eviction intent. See Strategy.
	Strategy Strategy `yaml:"strategy" mapstructure:"strategy"`

	// Priority (1..10) biases placement toward the memory tier. Entries
	// under 100KB with priority >= 7 always go to memory.
	Priority int `yaml:"priority" mapstructure:"priority"`

	// Compress enables zstd compression for disk-resident payloads.
	Compress bool `yaml:"compress" mapstructure:"compress"`
}

// PolicyTable maps categories to their policies.
type PolicyTable map[Category]Policy

// defaultPolicy applies to categories without an explicit table row.
var defaultPolicy = Policy{Strategy: StrategyLRU, Priority: 5}

// DefaultPolicies returns the standard per-category policy table.
func DefaultPolicies() PolicyTable {
	return PolicyTable{
		CategoryRecognitionResult: {
			TTL:      7 * 24 * time.Hour,
			Strategy: StrategyLRU,
			Priority: 10,
			Compress: true,
		},
		CategoryImageProcessed: {
			TTL:      30 * 24 * time.Hour,
			Strategy: StrategyLFU,
			Priority: 5,
			Compress: true,
		},
		CategorySearchResult: {
			TTL:      24 * time.Hour,
			Strategy: StrategyTTL,
			Priority: 7,
		},
		CategoryThumbnail: {
			TTL:      90 * 24 * time.Hour,
			Strategy: StrategyLFU,
			Priority: 3,
			Compress: true,
		},
		CategoryUserData: {
			TTL:      6 * time.Hour,
			Strategy: StrategyLRU,
			Priority: 8,
		},
		CategoryMapData: {
			TTL:      7 * 24 * time.Hour,
			Strategy: StrategyLRU,
			Priority: 5,
			Compress: true,
		},
		CategoryAPIResponse: {
			TTL:      time.Hour,
			Strategy: StrategyTTL,
			Priority: 5,
		},
		CategoryGeolocation: {
			TTL:      6 * time.Hour,
			Strategy: StrategyLRU,
			Priority: 5,
		},
	}
}

// policyFor resolves the policy for a category, falling back to the default
// for categories missing from the table.
func (t PolicyTable) policyFor(cat Category) Policy {
	if p, ok := t[cat]; ok {
		return p
	}
	return defaultPolicy
}
