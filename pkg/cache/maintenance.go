package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// Start launches the background maintenance task: a ticker-driven loop that
// sweeps expired entries from both tiers and persists a dated counter
// snapshot. Start is a no-op when maintenance is disabled or already
// running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running || e.config.MaintenanceInterval <= 0 {
		return
	}
	e.running = true
	e.maintStop = make(chan struct{})
	e.maintWg.Add(1)
	go e.maintenanceLoop()
}

// Stop cancels the maintenance task, waits for it to exit, and flushes the
// disk index. Stop is idempotent and safe to call without Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.running {
		e.running = false
		close(e.maintStop)
	}
	e.mu.Unlock()

	e.maintWg.Wait()

	e.mu.Lock()
	e.disk.close()
	e.mu.Unlock()
}

func (e *Engine) maintenanceLoop() {
	defer e.maintWg.Done()

	ticker := time.NewTicker(e.config.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.maintStop:
			return
		case <-ticker.C:
			e.runMaintenance()
		}
	}
}

// runMaintenance performs one sweep-and-snapshot pass. It is also called
// directly by tests.
func (e *Engine) runMaintenance() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	memRemoved := e.memory.sweepExpired(now)
	diskRemoved := e.disk.sweepExpired(now)

	if memRemoved > 0 || diskRemoved > 0 {
		e.logger.Debug("cache maintenance swept expired entries",
			"memory", memRemoved, "disk", diskRemoved)
	}

	if err := e.snapshotStatsLocked(now); err != nil {
		e.logger.Warn("cache stats snapshot failed", "error", err)
	}
}

// statsSnapshot is the persisted daily counter record.
type statsSnapshot struct {
	Date       string `json:"date"`
	Hits       int64  `json:"hits"`
	Misses     int64  `json:"misses"`
	Evictions  int64  `json:"evictions"`
	TotalBytes int64  `json:"total_bytes"`
}

// snapshotStatsLocked upserts the current day's counter snapshot in the
// cache directory for historical reporting.
func (e *Engine) snapshotStatsLocked(now time.Time) error {
	s := e.statsLocked()
	snap := statsSnapshot{
		Date:       now.Format("2006-01-02"),
		Hits:       s.Hits,
		Misses:     s.Misses,
		Evictions:  s.Evictions,
		TotalBytes: s.MemoryUsageBytes + s.DiskUsageBytes,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	path := filepath.Join(e.config.Dir, fmt.Sprintf("stats-%s.json", snap.Date))
	return atomicWrite(path, data)
}

// LoadStatsSnapshot reads a persisted snapshot for the given date from dir.
// It exists for reporting tools; a missing snapshot returns os.ErrNotExist.
func LoadStatsSnapshot(dir string, date time.Time) (hits, misses, evictions, totalBytes int64, err error) {
	path := filepath.Join(dir, fmt.Sprintf("stats-%s.json", date.Format("2006-01-02")))
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	var snap statsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, 0, 0, 0, err
	}
	return snap.Hits, snap.Misses, snap.Evictions, snap.TotalBytes, nil
}
