// Package triggerstate persists each trigger's last-fired timestamp so
// a restart doesn't immediately re-fire everything that was in cooldown
// when the process stopped.
package triggerstate

import (
	"encoding/json"
	"os"
	"time"
)

// Snapshot maps trigger name to the time it last fired.
type Snapshot map[string]time.Time

// Store persists a Snapshot to a single JSON file, rewritten atomically
// on every Save.
type Store struct {
	path string
}

// New returns a store backed by path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted snapshot. A missing file is not an error: it
// simply means no trigger has fired since the store was created.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Save writes snap to disk atomically: encode to a temp file, fsync,
// then rename over the destination.
func (s *Store) Save(snap Snapshot) error {
	tmpPath := s.path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	file.Close()

	return os.Rename(tmpPath, s.path)
}
