// Package readingwindow holds a bounded, time-pruned buffer of recent
// readings across all sensors, used by the fusion engine to look for
// cross-sensor correlation.
package readingwindow

import (
	"sync"
	"time"

	"github.com/bad-antics/glowbarn/internal/events"
)

// Entry pairs an ingestion timestamp with the reading observed then.
type Entry struct {
	Timestamp time.Time
	Reading   events.SensorReading
}

// Window is an insertion-ordered, time-bounded sequence of recent
// readings. Safe for concurrent use.
type Window struct {
	mu      sync.RWMutex
	entries []Entry
	keep    time.Duration // entries older than now-keep are pruned
}

// New returns an empty window that prunes entries older than keep
// (conventionally 2x the correlation window).
func New(keep time.Duration) *Window {
	return &Window{keep: keep}
}

// Append adds an entry and prunes anything older than now-keep. Prune
// runs on every append so the buffer never grows unboundedly.
func (w *Window) Append(now time.Time, reading events.SensorReading) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, Entry{Timestamp: now, Reading: reading})
	w.pruneLocked(now)
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.keep)

	i := 0
	for i < len(w.entries) && w.entries[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = append([]Entry(nil), w.entries[i:]...)
	}
}

// Scan returns a copy of every entry whose timestamp lies within
// [now-window, now], excluding readings from excludeSensor.
func (w *Window) Scan(now time.Time, window time.Duration, excludeSensor string) []Entry {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cutoff := now.Add(-window)
	out := make([]Entry, 0, len(w.entries))
	for _, e := range w.entries {
		if e.Reading.SensorName == excludeSensor {
			continue
		}
		if e.Timestamp.Before(cutoff) || e.Timestamp.After(now) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the current number of buffered entries.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}
