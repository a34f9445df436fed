package common

import (
	"sync"
	"time"
)

// PerformanceMetrics defines the interface for performance tracking
type PerformanceMetrics interface {
	GetMetrics() map[string]interface{}
}

var _ PerformanceMetrics = (*TraversalMetrics)(nil)

// TraversalStats is a point-in-time copy of a traversal's counters
type TraversalStats struct {
	DirsListed      int64
	EntriesResolved int64
	EntriesEmitted  int64
	Warnings        int64
	Fatal           bool
	StartTime       time.Time
	EndTime         time.Time
}

// Duration returns the elapsed time, up to now if still running
func (s TraversalStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// TraversalMetrics tracks the work done by one traversal
type TraversalMetrics struct {
	stats TraversalStats
	mu    sync.RWMutex
}

// NewTraversalMetrics creates metrics with the start time set to now
func NewTraversalMetrics() *TraversalMetrics {
	return &TraversalMetrics{stats: TraversalStats{StartTime: time.Now()}}
}

func (tm *TraversalMetrics) AddDirListed() {
	tm.mu.Lock()
	tm.stats.DirsListed++
	tm.mu.Unlock()
}

func (tm *TraversalMetrics) AddResolved(n int) {
	tm.mu.Lock()
	tm.stats.EntriesResolved += int64(n)
	tm.mu.Unlock()
}

func (tm *TraversalMetrics) AddEmitted(n int) {
	tm.mu.Lock()
	tm.stats.EntriesEmitted += int64(n)
	tm.mu.Unlock()
}

func (tm *TraversalMetrics) AddWarning() {
	tm.mu.Lock()
	tm.stats.Warnings++
	tm.mu.Unlock()
}

// Finish records the end of the traversal. Only the first call counts.
func (tm *TraversalMetrics) Finish(fatal bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if !tm.stats.EndTime.IsZero() {
		return
	}
	tm.stats.EndTime = time.Now()
	tm.stats.Fatal = fatal
}

// Snapshot returns a copy of the current counters
func (tm *TraversalMetrics) Snapshot() TraversalStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.stats
}

// GetMetrics returns the metrics as a map
func (tm *TraversalMetrics) GetMetrics() map[string]interface{} {
	snap := tm.Snapshot()
	return map[string]interface{}{
		"dirs_listed":      snap.DirsListed,
		"entries_resolved": snap.EntriesResolved,
		"entries_emitted":  snap.EntriesEmitted,
		"warnings":         snap.Warnings,
		"fatal":            snap.Fatal,
		"duration":         snap.Duration(),
	}
}
