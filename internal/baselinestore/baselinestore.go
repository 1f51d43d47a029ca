// Package baselinestore checkpoints the fusion engine's baseline
// registry to SQLite so a restart can skip the warm-up period instead
// of relearning every sensor's statistics from scratch.
package baselinestore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/baseline"
)

const schema = `
CREATE TABLE IF NOT EXISTS baselines (
	name             TEXT PRIMARY KEY,
	mean             REAL NOT NULL,
	std_dev          REAL NOT NULL,
	min              REAL NOT NULL,
	max              REAL NOT NULL,
	sample_count     INTEGER NOT NULL,
	last_calibration TEXT NOT NULL
);
`

// Store checkpoints baseline.Snapshot rows to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open baseline store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create baseline schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Checkpoint upserts every baseline snapshot currently held by
// registry, replacing prior checkpoints for the same sensor.
func (s *Store) Checkpoint(registry *baseline.Registry) error {
	snapshots := registry.Snapshots()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin checkpoint transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO baselines (name, mean, std_dev, min, max, sample_count, last_calibration)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			mean = excluded.mean,
			std_dev = excluded.std_dev,
			min = excluded.min,
			max = excluded.max,
			sample_count = excluded.sample_count,
			last_calibration = excluded.last_calibration
	`)
	if err != nil {
		return fmt.Errorf("prepare checkpoint statement: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snapshots {
		if _, err := stmt.Exec(snap.Name, snap.Mean, snap.StdDev, snap.Min, snap.Max, snap.SampleCount, snap.LastCalibration.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("checkpoint baseline %s: %w", snap.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint transaction: %w", err)
	}

	log.Debug().Int("count", len(snapshots)).Msg("checkpointed baselines")
	return nil
}

// Restore loads every checkpointed baseline into registry, skipping
// warm-up for any sensor that already has a checkpoint.
func (s *Store) Restore(registry *baseline.Registry) (int, error) {
	rows, err := s.db.Query(`SELECT name, mean, std_dev, min, max, sample_count, last_calibration FROM baselines`)
	if err != nil {
		return 0, fmt.Errorf("query baselines: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var snap baseline.Snapshot
		var lastCalibration string
		if err := rows.Scan(&snap.Name, &snap.Mean, &snap.StdDev, &snap.Min, &snap.Max, &snap.SampleCount, &lastCalibration); err != nil {
			return count, fmt.Errorf("scan baseline row: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, lastCalibration)
		if err != nil {
			return count, fmt.Errorf("parse last_calibration: %w", err)
		}
		snap.LastCalibration = parsed

		registry.Restore(snap)
		count++
	}

	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("iterate baseline rows: %w", err)
	}

	log.Info().Int("count", count).Msg("restored baselines from checkpoint")
	return count, nil
}

// RunPeriodicCheckpoints checkpoints registry to s every interval until
// stop is closed. Intended to run in its own goroutine.
func (s *Store) RunPeriodicCheckpoints(registry *baseline.Registry, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Checkpoint(registry); err != nil {
				log.Error().Err(err).Msg("periodic baseline checkpoint failed")
			}
		case <-stop:
			return
		}
	}
}
