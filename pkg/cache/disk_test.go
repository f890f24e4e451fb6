package cache

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func newTestDiskTier(t *testing.T, dir string, capacity int64) *diskTier {
	t.Helper()
	tier, err := newDiskTier(dir, capacity, 3, log.New(io.Discard))
	if err != nil {
		t.Fatalf("newDiskTier: %v", err)
	}
	return tier
}

func TestDiskTier_RoundTrip(t *testing.T) {
	tier := newTestDiskTier(t, t.TempDir(), 1<<20)

	// Repetitive payload above the compression floor so the zstd path runs.
	payload := bytes.Repeat([]byte("monumento "), 500)
	entry := makeEntry("colosseo", CategoryRecognitionResult, len(payload), time.Hour)
	entry.Payload = payload
	tier.put(entry, true)

	got, ok := tier.get(entry.Key, time.Now())
	if !ok {
		t.Fatal("expected disk hit")
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Error("payload mismatch after compression round trip")
	}
	if got.Category != CategoryRecognitionResult {
		t.Errorf("category = %q, want %q", got.Category, CategoryRecognitionResult)
	}
	if tier.reads != 1 || tier.writes != 1 {
		t.Errorf("reads=%d writes=%d, want 1/1", tier.reads, tier.writes)
	}

	row := tier.index[entry.Key]
	if !row.Compressed {
		t.Error("compressible payload should be stored compressed")
	}
	if row.DiskBytes >= row.SizeBytes {
		t.Errorf("disk bytes %d not smaller than payload %d", row.DiskBytes, row.SizeBytes)
	}
}

func TestDiskTier_SelfHealMissingFile(t *testing.T) {
	tier := newTestDiskTier(t, t.TempDir(), 1<<20)

	entry := makeEntry("a", CategoryUserData, 64, 0)
	tier.put(entry, false)

	os.Remove(tier.index[entry.Key].FilePath)

	if _, ok := tier.get(entry.Key, time.Now()); ok {
		t.Fatal("read of a missing file must be a miss")
	}
	if _, ok := tier.index[entry.Key]; ok {
		t.Error("stale index row should have been dropped")
	}
	if tier.usage != 0 {
		t.Errorf("usage = %d, want 0 after self-heal", tier.usage)
	}
}

func TestDiskTier_EvictsOldestAccess(t *testing.T) {
	tier := newTestDiskTier(t, t.TempDir(), 100)

	old := makeEntry("old", CategoryThumbnail, 40, 0)
	old.LastAccessed = time.Now().Add(-time.Hour)
	tier.put(old, false)

	fresh := makeEntry("fresh", CategoryThumbnail, 40, 0)
	tier.put(fresh, false)

	// Third insert exceeds the 100-byte budget; the stalest row goes first.
	tier.put(makeEntry("new", CategoryThumbnail, 40, 0), false)

	if _, ok := tier.index[old.Key]; ok {
		t.Error("entry with oldest last access should have been evicted")
	}
	if _, ok := tier.index[fresh.Key]; !ok {
		t.Error("recently accessed entry should survive")
	}
	if tier.evictions != 1 {
		t.Errorf("evictions = %d, want 1", tier.evictions)
	}
}

func TestDiskTier_IndexPersistence(t *testing.T) {
	dir := t.TempDir()

	tier := newTestDiskTier(t, dir, 1<<20)
	entry := makeEntry("persist", CategoryMapData, 128, time.Hour)
	entry.Metadata = map[string]any{"zoom": "12"}
	tier.put(entry, true)
	tier.close()

	reopened := newTestDiskTier(t, dir, 1<<20)
	if reopened.usage != 128 {
		t.Errorf("usage after reload = %d, want 128", reopened.usage)
	}
	got, ok := reopened.get(entry.Key, time.Now())
	if !ok {
		t.Fatal("entry should survive a reopen")
	}
	if got.Metadata["zoom"] != "12" {
		t.Errorf("metadata lost across reload: %v", got.Metadata)
	}
}

func TestDiskTier_TooLargePayloadDropped(t *testing.T) {
	tier := newTestDiskTier(t, t.TempDir(), 100)

	tier.put(makeEntry("keep", CategoryThumbnail, 40, 0), false)
	tier.put(makeEntry("huge", CategoryThumbnail, 500, 0), false)

	if _, ok := tier.index[compositeKey("huge", CategoryThumbnail)]; ok {
		t.Error("over-budget payload must not be stored")
	}
	if _, ok := tier.index[compositeKey("keep", CategoryThumbnail)]; !ok {
		t.Error("resident entries must not be evicted for an unstorable payload")
	}
}

func TestDiskTier_ExpiredRowIsMiss(t *testing.T) {
	tier := newTestDiskTier(t, t.TempDir(), 1<<20)

	entry := makeEntry("stale", CategoryAPIResponse, 32, time.Second)
	entry.CreatedAt = time.Now().Add(-time.Minute)
	tier.put(entry, false)

	if _, ok := tier.get(entry.Key, time.Now()); ok {
		t.Fatal("expired row should miss")
	}
	if tier.entries() != 0 {
		t.Error("expired row should be removed on access")
	}
}

func TestDiskTier_SweepAndClearCategory(t *testing.T) {
	tier := newTestDiskTier(t, t.TempDir(), 1<<20)

	dead := makeEntry("dead", CategoryAPIResponse, 32, time.Second)
	dead.CreatedAt = time.Now().Add(-time.Minute)
	tier.put(dead, false)
	tier.put(makeEntry("user", CategoryUserData, 32, 0), false)
	tier.put(makeEntry("map", CategoryMapData, 32, 0), false)

	if removed := tier.sweepExpired(time.Now()); removed != 1 {
		t.Fatalf("sweep removed %d, want 1", removed)
	}

	tier.clearCategory(CategoryUserData)
	if _, ok := tier.index[compositeKey("user", CategoryUserData)]; ok {
		t.Error("user_data row should be cleared")
	}
	if _, ok := tier.index[compositeKey("map", CategoryMapData)]; !ok {
		t.Error("map_data row should survive")
	}
}
