package cache

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestMaintenance_SweepsBothTiers(t *testing.T) {
	engine := newTestEngine(t, 100, 1<<20)

	// One short-lived entry per tier.
	engine.Set("mem", CategoryUserData, make([]byte, 10), WithTTL(20*time.Millisecond))
	engine.Set("disk", CategoryThumbnail, make([]byte, 500), WithTTL(20*time.Millisecond))
	engine.Set("keeper", CategoryUserData, make([]byte, 10))

	time.Sleep(40 * time.Millisecond)
	engine.runMaintenance()

	s := engine.Stats()
	if s.MemoryEntries != 1 {
		t.Errorf("memory entries = %d, want only the keeper", s.MemoryEntries)
	}
	if s.DiskEntries != 0 {
		t.Errorf("disk entries = %d, want 0 after sweep", s.DiskEntries)
	}
	if _, ok := engine.Get("keeper", CategoryUserData); !ok {
		t.Error("unexpired entry should survive maintenance")
	}
}

func TestMaintenance_PersistsStatsSnapshot(t *testing.T) {
	engine := newTestEngine(t, 1<<20, 1<<20)

	engine.Set("a", CategoryUserData, []byte("x"))
	engine.Get("a", CategoryUserData)
	engine.Get("ghost", CategoryUserData)

	engine.runMaintenance()

	hits, misses, _, totalBytes, err := LoadStatsSnapshot(engine.config.Dir, time.Now())
	if err != nil {
		t.Fatalf("snapshot not readable: %v", err)
	}
	if hits != 1 || misses != 1 {
		t.Errorf("snapshot hits=%d misses=%d, want 1/1", hits, misses)
	}
	if totalBytes != 1 {
		t.Errorf("snapshot total bytes = %d, want 1", totalBytes)
	}
}

func TestMaintenance_StartStop(t *testing.T) {
	engine, err := New(&Config{
		MaxMemoryBytes:      1 << 20,
		MaxDiskBytes:        1 << 20,
		Dir:                 t.TempDir(),
		MaintenanceInterval: 10 * time.Millisecond,
		CompressionLevel:    3,
		Logger:              log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	engine.Set("soon", CategoryUserData, []byte("x"), WithTTL(5*time.Millisecond))

	engine.Start()
	engine.Start() // second Start is a no-op

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if engine.Stats().MemoryEntries == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if engine.Stats().MemoryEntries != 0 {
		t.Error("background sweep should have removed the expired entry")
	}

	engine.Stop()
	engine.Stop() // Stop is idempotent
}

func TestMaintenance_StopWithoutStart(t *testing.T) {
	engine := newTestEngine(t, 1<<20, 1<<20)
	// Cleanup already calls Stop; calling it here as well must not block or
	// panic.
	engine.Stop()
}
