// Package sensorstatus tracks per-sensor connectivity, freshness, and
// reading quality, separately from the statistical baseline. It backs
// sensor-offline alerting.
package sensorstatus

import (
	"sync"
	"time"
)

// Status is a point-in-time view of one sensor's health.
type Status struct {
	Name        string
	Connected   bool
	LastReading time.Time
	ErrorCount  uint32
	Quality     float64
}

// Tracker maintains Status per sensor. Safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	status  map[string]*Status
	offline time.Duration // a sensor with no reading for this long is offline
}

// New returns a tracker that considers a sensor offline once offline
// has elapsed since its last reading.
func New(offline time.Duration) *Tracker {
	return &Tracker{status: make(map[string]*Status), offline: offline}
}

// Observe records a fresh reading for name at the given quality,
// marking the sensor online, and reports whether the sensor just
// transitioned from offline to online.
func (t *Tracker) Observe(name string, quality float32, now time.Time) (becameOnline bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.status[name]
	if !ok {
		s = &Status{Name: name}
		t.status[name] = s
	}

	wasOffline := !s.Connected
	s.Connected = true
	s.LastReading = now
	s.Quality = float64(quality)

	return wasOffline
}

// RecordError increments the error count for name without otherwise
// changing its connectivity state.
func (t *Tracker) RecordError(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.status[name]
	if !ok {
		s = &Status{Name: name}
		t.status[name] = s
	}
	s.ErrorCount++
}

// SweepOffline marks any sensor that hasn't reported within the offline
// window as disconnected and returns the names that just went offline.
func (t *Tracker) SweepOffline(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var wentOffline []string
	for name, s := range t.status {
		if s.Connected && now.Sub(s.LastReading) > t.offline {
			s.Connected = false
			wentOffline = append(wentOffline, name)
		}
	}
	return wentOffline
}

// Get returns a copy of the named sensor's status.
func (t *Tracker) Get(name string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.status[name]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

// All returns a copy of every tracked sensor's status.
func (t *Tracker) All() []Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Status, 0, len(t.status))
	for _, s := range t.status {
		out = append(out, *s)
	}
	return out
}
