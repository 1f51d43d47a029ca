package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bad-antics/glowbarn/internal/events"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := New(t.TempDir())
	require.NoError(t, err)
	return r
}

func TestStartSession_CreatesActiveSession(t *testing.T) {
	r := newTestRecorder(t)

	err := r.StartSession("investigation", "attic")
	require.NoError(t, err)

	session, ok := r.ActiveSession()
	assert.True(t, ok)
	assert.Equal(t, "investigation", session.Name)
	assert.Equal(t, "attic", session.Location)
	assert.Nil(t, session.EndTime)
}

func TestStartSession_FailsWhenSessionActive(t *testing.T) {
	r := newTestRecorder(t)

	require.NoError(t, r.StartSession("first", "attic"))

	err := r.StartSession("second", "basement")
	assert.ErrorIs(t, err, ErrSessionActive)

	session, _ := r.ActiveSession()
	assert.Equal(t, "first", session.Name)
}

func TestEndSession_StampsEndTimeAndReturnsSession(t *testing.T) {
	r := newTestRecorder(t)
	require.NoError(t, r.StartSession("investigation", "attic"))

	ended, err := r.EndSession()
	require.NoError(t, err)
	assert.NotNil(t, ended.EndTime)

	_, active := r.ActiveSession()
	assert.False(t, active)
}

func TestRecordEvent_AppendsAndIncrementsCount(t *testing.T) {
	r := newTestRecorder(t)
	require.NoError(t, r.StartSession("investigation", "attic"))

	event := events.NewEvent(events.EmfAnomaly, 0.8, time.Now())
	require.NoError(t, r.RecordEvent(event))
	require.NoError(t, r.RecordEvent(event))

	session, _ := r.ActiveSession()
	assert.Equal(t, 2, session.EventCount)

	loaded, err := r.LoadEvents(session.ID)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, event.ID, loaded[0].ID)
}

func TestRecordEvent_NoopWithoutActiveSession(t *testing.T) {
	r := newTestRecorder(t)
	event := events.NewEvent(events.EmfAnomaly, 0.8, time.Now())
	assert.NoError(t, r.RecordEvent(event))
}

func TestAddNote_AttachesToActiveSession(t *testing.T) {
	r := newTestRecorder(t)
	require.NoError(t, r.StartSession("investigation", "attic"))

	r.AddNote("cold draft near window")

	session, _ := r.ActiveSession()
	require.Len(t, session.Notes, 1)
	assert.Contains(t, session.Notes[0], "cold draft near window")
}

func TestExportSession_WritesPortableBundle(t *testing.T) {
	r := newTestRecorder(t)
	require.NoError(t, r.StartSession("investigation", "attic"))

	event := events.NewEvent(events.EmfAnomaly, 0.8, time.Now())
	require.NoError(t, r.RecordEvent(event))

	session, _ := r.ActiveSession()
	_, err := r.EndSession()
	require.NoError(t, err)

	outputPath := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, r.ExportSession(session.ID, outputPath))

	assert.FileExists(t, outputPath)
}

func TestListSessions_SortsNewestFirst(t *testing.T) {
	r := newTestRecorder(t)

	require.NoError(t, r.StartSession("first", "attic"))
	_, err := r.EndSession()
	require.NoError(t, err)

	// Session IDs are second-resolution; wait for the clock to tick over
	// so "first" and "second" don't collide.
	time.Sleep(1100 * time.Millisecond)

	require.NoError(t, r.StartSession("second", "basement"))
	r.EndSession()

	sessions, err := r.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "second", sessions[0].Name)
}
