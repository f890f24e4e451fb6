package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

const indexFileName = "index.json"

// compressFloor is the smallest payload worth compressing.
const compressFloor = 1024

// diskTier is the persistent, capacity-bounded store: one payload file per
// entry plus a JSON metadata index. Capacity is enforced by evicting the
// entry with the oldest last access.
//
// Like memoryTier it relies on the engine's mutex for synchronization.
// Every I/O or codec failure is logged and degrades to a miss (reads) or a
// dropped write (puts); disk faults never reach callers.
type diskTier struct {
	dir      string
	capacity int64
	usage    int64

	index map[string]*diskEntry

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	logger *log.Logger

	reads     int64
	writes    int64
	evictions int64
}

// diskEntry is one row of the metadata index.
type diskEntry struct {
	Key          string         `json:"key"`
	Category     Category       `json:"category"`
	CreatedAt    time.Time      `json:"created_at"`
	LastAccessed time.Time      `json:"last_accessed"`
	AccessCount  int64          `json:"access_count"`
	SizeBytes    int64          `json:"size_bytes"` // serialized payload size
	DiskBytes    int64          `json:"disk_bytes"` // bytes on disk (post compression)
	TTLSeconds   int64          `json:"ttl_seconds,omitempty"`
	FilePath     string         `json:"file_path"`
	Compressed   bool           `json:"compressed"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (d *diskEntry) expired(now time.Time) bool {
	if d.TTLSeconds <= 0 {
		return false
	}
	return now.After(d.CreatedAt.Add(time.Duration(d.TTLSeconds) * time.Second))
}

func newDiskTier(dir string, capacity int64, compressionLevel int, logger *log.Logger) (*diskTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	t := &diskTier{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		logger:   logger,
	}

	var err error
	t.encoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	t.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	if err := t.loadIndex(); err != nil {
		// Non-fatal: start with an empty index.
		t.logger.Warn("cache index unreadable, starting empty", "dir", dir, "error", err)
		t.index = make(map[string]*diskEntry)
	}
	for _, row := range t.index {
		t.usage += row.SizeBytes
	}

	return t, nil
}

// get reconstructs the entry for key from its index row and payload file.
// Stale rows (file missing or unreadable) are dropped on sight.
func (t *diskTier) get(key string, now time.Time) (*Entry, bool) {
	row, ok := t.index[key]
	if !ok {
		return nil, false
	}

	if row.expired(now) {
		t.removeRow(row)
		t.saveIndex()
		return nil, false
	}

	data, err := os.ReadFile(row.FilePath)
	if err != nil {
		t.logger.Warn("cache file unreadable, dropping index row", "key", key, "error", err)
		t.removeRow(row)
		t.saveIndex()
		return nil, false
	}

	if row.Compressed {
		data, err = t.decoder.DecodeAll(data, nil)
		if err != nil {
			t.logger.Warn("cache file corrupted, dropping entry", "key", key, "error", err)
			t.removeRow(row)
			t.saveIndex()
			return nil, false
		}
	}

	row.LastAccessed = now
	row.AccessCount++
	t.reads++
	t.saveIndex()

	entry := &Entry{
		Key:          row.Key,
		Payload:      data,
		Category:     row.Category,
		CreatedAt:    row.CreatedAt,
		LastAccessed: row.LastAccessed,
		AccessCount:  row.AccessCount,
		SizeBytes:    row.SizeBytes,
		TTL:          time.Duration(row.TTLSeconds) * time.Second,
		Metadata:     row.Metadata,
	}
	return entry, true
}

// put persists the entry, compressing when asked, evicting oldest-access
// rows until the byte budget holds. Failures are logged and swallowed.
func (t *diskTier) put(entry *Entry, compress bool) {
	if existing, ok := t.index[entry.Key]; ok {
		t.removeRow(existing)
	}

	if entry.SizeBytes > t.capacity {
		t.logger.Warn("payload not cached", "key", entry.Key,
			"size", entry.SizeBytes, "capacity", t.capacity, "error", ErrItemTooLarge)
		return
	}

	for t.usage+entry.SizeBytes > t.capacity && len(t.index) > 0 {
		t.evictOldest()
	}

	data := entry.Payload
	compressed := false
	if compress && entry.SizeBytes > compressFloor {
		packed := t.encoder.EncodeAll(entry.Payload, nil)
		// Keep the raw bytes when compression does not shrink them.
		if len(packed) < len(entry.Payload) {
			data = packed
			compressed = true
		}
	}

	path := t.filePath(entry.Key)
	if err := atomicWrite(path, data); err != nil {
		t.logger.Warn("cache write failed", "key", entry.Key, "error", err)
		return
	}

	t.index[entry.Key] = &diskEntry{
		Key:          entry.Key,
		Category:     entry.Category,
		CreatedAt:    entry.CreatedAt,
		LastAccessed: entry.LastAccessed,
		AccessCount:  entry.AccessCount,
		SizeBytes:    entry.SizeBytes,
		DiskBytes:    int64(len(data)),
		TTLSeconds:   int64(entry.TTL / time.Second),
		FilePath:     path,
		Compressed:   compressed,
		Metadata:     entry.Metadata,
	}
	t.usage += entry.SizeBytes
	t.writes++
	t.saveIndex()
}

// remove deletes the row and backing file for key if present.
func (t *diskTier) remove(key string) bool {
	row, ok := t.index[key]
	if !ok {
		return false
	}
	t.removeRow(row)
	t.saveIndex()
	return true
}

func (t *diskTier) clear() {
	for _, row := range t.index {
		os.Remove(row.FilePath)
	}
	t.index = make(map[string]*diskEntry)
	t.usage = 0
	t.saveIndex()
}

func (t *diskTier) clearCategory(cat Category) {
	for _, row := range t.index {
		if row.Category == cat {
			t.removeRow(row)
		}
	}
	t.saveIndex()
}

// sweepExpired drops every expired row and its file, returning the count.
func (t *diskTier) sweepExpired(now time.Time) int {
	removed := 0
	for _, row := range t.index {
		if row.expired(now) {
			t.removeRow(row)
			removed++
		}
	}
	if removed > 0 {
		t.saveIndex()
	}
	return removed
}

func (t *diskTier) entries() int {
	return len(t.index)
}

// close flushes the index to disk.
func (t *diskTier) close() {
	t.saveIndex()
}

// evictOldest removes the row with the oldest last access.
func (t *diskTier) evictOldest() {
	var oldest *diskEntry
	for _, row := range t.index {
		if oldest == nil || row.LastAccessed.Before(oldest.LastAccessed) {
			oldest = row
		}
	}
	if oldest != nil {
		t.removeRow(oldest)
		t.evictions++
	}
}

// removeRow deletes a row and its file without persisting the index;
// callers batch the saveIndex.
func (t *diskTier) removeRow(row *diskEntry) {
	if err := os.Remove(row.FilePath); err != nil && !os.IsNotExist(err) {
		t.logger.Warn("cache file removal failed", "path", row.FilePath, "error", err)
	}
	delete(t.index, row.Key)
	t.usage -= row.SizeBytes
}

// filePath derives the deterministic payload file name for a composite key.
func (t *diskTier) filePath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(t.dir, hex.EncodeToString(sum[:16])+".cache")
}

func (t *diskTier) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(t.dir, indexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil // first run
		}
		return err
	}
	return json.Unmarshal(data, &t.index)
}

// saveIndex rewrites the metadata index. Failures are logged, not raised:
// a lost index only costs cached data, never correctness.
func (t *diskTier) saveIndex() {
	data, err := json.Marshal(t.index)
	if err != nil {
		t.logger.Warn("cache index encode failed", "error", err)
		return
	}
	if err := atomicWrite(filepath.Join(t.dir, indexFileName), data); err != nil {
		t.logger.Warn("cache index write failed", "error", err)
	}
}

// atomicWrite writes data via a temp file and rename so readers never see a
// partial file.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
