package cache

import (
	"container/list"
	"strings"
	"time"
)

// memoryTier is the byte-budgeted in-memory store with LRU eviction.
//
// It is not safe for concurrent use on its own: the engine's mutex
// serializes every call, which also keeps promotion (a disk read followed
// by a memory write) atomic.
type memoryTier struct {
	capacity int64
	usage    int64

	items    map[string]*list.Element
	eviction *list.List // Front = most recently used, Back = least recently used

	evictions int64
}

func newMemoryTier(capacity int64) *memoryTier {
	return &memoryTier{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// get returns the live entry for key, updating recency and access stats.
// An expired entry is removed on sight and reported as a miss.
func (t *memoryTier) get(key string, now time.Time) (*Entry, bool) {
	elem, ok := t.items[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*Entry)
	if entry.Expired(now) {
		t.removeElement(elem)
		return nil, false
	}

	t.eviction.MoveToFront(elem)
	entry.touch(now)
	return entry, true
}

// put inserts or overwrites an entry, evicting least-recently-used entries
// until the byte budget holds.
func (t *memoryTier) put(entry *Entry) {
	if elem, ok := t.items[entry.Key]; ok {
		t.removeElement(elem)
	}

	for t.usage+entry.SizeBytes > t.capacity && t.eviction.Len() > 0 {
		t.evictOldest()
	}

	elem := t.eviction.PushFront(entry)
	t.items[entry.Key] = elem
	t.usage += entry.SizeBytes
}

// remove deletes the entry for key if present. Removing an absent key is a
// no-op.
func (t *memoryTier) remove(key string) bool {
	elem, ok := t.items[key]
	if !ok {
		return false
	}
	t.removeElement(elem)
	return true
}

func (t *memoryTier) clear() {
	t.items = make(map[string]*list.Element)
	t.eviction.Init()
	t.usage = 0
}

func (t *memoryTier) clearCategory(cat Category) {
	elem := t.eviction.Front()
	for elem != nil {
		next := elem.Next()
		if elem.Value.(*Entry).Category == cat {
			t.removeElement(elem)
		}
		elem = next
	}
}

// matchKeys returns the composite keys of resident entries whose key
// contains pattern, optionally restricted to one category ("" matches all).
func (t *memoryTier) matchKeys(pattern string, cat Category) []string {
	var keys []string
	for key, elem := range t.items {
		if cat != "" && elem.Value.(*Entry).Category != cat {
			continue
		}
		if strings.Contains(key, pattern) {
			keys = append(keys, key)
		}
	}
	return keys
}

// sweepExpired drops every expired entry and returns how many were removed.
func (t *memoryTier) sweepExpired(now time.Time) int {
	removed := 0
	elem := t.eviction.Front()
	for elem != nil {
		next := elem.Next()
		if elem.Value.(*Entry).Expired(now) {
			t.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

func (t *memoryTier) entries() int {
	return len(t.items)
}

// evictOldest removes the least recently used entry. Only capacity-driven
// removals count toward the evictions total; expiry sweeps do not.
func (t *memoryTier) evictOldest() {
	if elem := t.eviction.Back(); elem != nil {
		t.removeElement(elem)
		t.evictions++
	}
}

func (t *memoryTier) removeElement(elem *list.Element) {
	t.eviction.Remove(elem)
	entry := elem.Value.(*Entry)
	delete(t.items, entry.Key)
	t.usage -= entry.SizeBytes
}
