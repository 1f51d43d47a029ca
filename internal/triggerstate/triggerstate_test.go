package triggerstate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsEmptySnapshot(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.json"))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))

	now := time.Now().Truncate(time.Second).UTC()
	snap := Snapshot{"high_emf_alert": now, "cold_spot_alert": now.Add(-time.Minute)}

	require.NoError(t, s.Save(snap))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.WithinDuration(t, now, loaded["high_emf_alert"], time.Second)
}

func TestSave_OverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := New(path)

	require.NoError(t, s.Save(Snapshot{"a": time.Now()}))
	require.NoError(t, s.Save(Snapshot{"b": time.Now()}))

	loaded, err := s.Load()
	require.NoError(t, err)
	_, hasA := loaded["a"]
	_, hasB := loaded["b"]
	assert.False(t, hasA)
	assert.True(t, hasB)
}
