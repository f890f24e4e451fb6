package cache

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// memoryPlacementLimit is the payload size under which high-priority
// categories are always placed in memory.
const memoryPlacementLimit = 100 * 1024

// Engine is the two-tier cache facade. All public operations are safe for
// concurrent use: one mutex serializes every tier-touching call, so a key
// lives in at most one tier at any instant, including across promotion.
//
// Construct with New, then Start to run background maintenance and Stop to
// shut down cleanly.
type Engine struct {
	mu sync.Mutex

	config   *Config
	policies PolicyTable
	memory   *memoryTier
	disk     *diskTier
	logger   *log.Logger

	hits   int64
	misses int64

	// Maintenance task control
	maintStop chan struct{}
	maintWg   sync.WaitGroup
	running   bool
}

// SetOption customizes a single Set call.
type SetOption func(*setOptions)

type setOptions struct {
	ttl      time.Duration
	metadata map[string]any
}

// WithTTL overrides the category's default TTL for this entry.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) { o.ttl = ttl }
}

// WithMetadata attaches free-form metadata to the entry.
func WithMetadata(md map[string]any) SetOption {
	return func(o *setOptions) { o.metadata = md }
}

// New creates an engine from config (nil means DefaultConfig). The disk
// tier directory is created and its index loaded; maintenance does not run
// until Start is called.
func New(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	policies := config.Policies
	if policies == nil {
		policies = DefaultPolicies()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	disk, err := newDiskTier(config.Dir, config.MaxDiskBytes, config.CompressionLevel, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:   config,
		policies: policies,
		memory:   newMemoryTier(config.MaxMemoryBytes),
		disk:     disk,
		logger:   logger,
	}, nil
}

// Get returns the payload for (key, category), or ok=false on a miss.
// Memory is checked first; a disk hit may promote the entry into memory.
// A miss is never an error.
func (e *Engine) Get(key string, cat Category) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	full := compositeKey(key, cat)

	if entry, ok := e.memory.get(full, now); ok {
		e.hits++
		return entry.Payload, true
	}

	if entry, ok := e.disk.get(full, now); ok {
		e.hits++
		e.promote(entry)
		return entry.Payload, true
	}

	e.misses++
	return nil, false
}

// Set stores payload under (key, category). The placement policy decides
// the tier; the chosen tier evicts as needed. TTL defaults to the
// category's policy unless overridden with WithTTL.
func (e *Engine) Set(key string, cat Category, payload []byte, opts ...SetOption) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	policy := e.policies.policyFor(cat)

	ttl := o.ttl
	if ttl <= 0 {
		ttl = policy.TTL
	}

	entry := &Entry{
		Key:          compositeKey(key, cat),
		Payload:      payload,
		Category:     cat,
		CreatedAt:    now,
		LastAccessed: now,
		AccessCount:  1, // the write is the first touch
		SizeBytes:    int64(len(payload)),
		TTL:          ttl,
		Metadata:     o.metadata,
	}

	// An overwrite may switch tiers; drop the stale copy so the key stays
	// resident in exactly one tier.
	if e.shouldStoreInMemory(entry.SizeBytes, policy.Priority) {
		e.disk.remove(entry.Key)
		e.memory.put(entry)
	} else {
		e.memory.remove(entry.Key)
		e.disk.put(entry, policy.Compress)
	}
}

// Invalidate removes (key, category) from both tiers. Removing an absent
// key is a no-op.
func (e *Engine) Invalidate(key string, cat Category) {
	e.mu.Lock()
	defer e.mu.Unlock()

	full := compositeKey(key, cat)
	e.memory.remove(full)
	e.disk.remove(full)
}

// InvalidateByPattern removes every entry whose composite key contains
// pattern, optionally restricted to one category (pass "" for all).
//
// Matching runs over memory-resident entries only; matched keys are purged
// from both tiers. Disk-only entries are not scanned.
func (e *Engine) InvalidateByPattern(pattern string, cat Category) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, key := range e.memory.matchKeys(pattern, cat) {
		e.memory.remove(key)
		e.disk.remove(key)
	}
}

// Clear removes every entry of the given category from both tiers, or
// everything when cat is "".
func (e *Engine) Clear(cat Category) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cat == "" {
		e.memory.clear()
		e.disk.clear()
		return
	}
	e.memory.clearCategory(cat)
	e.disk.clearCategory(cat)
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.statsLocked()
}

func (e *Engine) statsLocked() Stats {
	s := Stats{
		MemoryEntries:    e.memory.entries(),
		MemoryUsageBytes: e.memory.usage,
		DiskEntries:      e.disk.entries(),
		DiskUsageBytes:   e.disk.usage,
		Hits:             e.hits,
		Misses:           e.misses,
		Evictions:        e.memory.evictions + e.disk.evictions,
		DiskReads:        e.disk.reads,
		DiskWrites:       e.disk.writes,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// promote re-evaluates placement after a disk hit and moves the entry into
// memory when it qualifies. Moving deletes the disk row: an entry is never
// resident in both tiers.
func (e *Engine) promote(entry *Entry) {
	policy := e.policies.policyFor(entry.Category)
	if !e.shouldStoreInMemory(entry.SizeBytes, policy.Priority) {
		return
	}
	e.disk.remove(entry.Key)
	e.memory.put(entry)
}

// shouldStoreInMemory reports whether an entry belongs in the memory tier:
// small high-priority payloads always do, otherwise anything that fits the
// current budget without eviction.
func (e *Engine) shouldStoreInMemory(size int64, priority int) bool {
	if size < memoryPlacementLimit && priority >= 7 {
		return true
	}
	return e.memory.usage+size <= e.memory.capacity
}

// compositeKey builds the internal identifier for (key, category). Callers
// never see this form; the disk tier hashes it again for file names.
func compositeKey(key string, cat Category) string {
	return string(cat) + ":" + key
}
