// Package recorder persists recording sessions and the events and
// sensor readings captured during them: pretty-printed session
// metadata rewritten atomically, plus append-only JSON-lines logs that
// survive a crash mid-write.
package recorder

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/events"
)

// ErrSessionActive is returned by StartSession when a recording session
// is already in progress; the caller must end it first.
var ErrSessionActive = errors.New("recorder: a session is already active")

// Session describes one recording run: a named, located span of time
// during which events and sensor readings are logged to disk.
type Session struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	StartTime  time.Time `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	EventCount int       `json:"event_count"`
	Notes      []string  `json:"notes"`
}

func newSession(name, location string) Session {
	now := time.Now()
	return Session{
		ID:        fmt.Sprintf("session_%d", now.Unix()),
		Name:      name,
		Location:  location,
		StartTime: now,
		Notes:     make([]string, 0),
	}
}

// AddNote appends a timestamped note, returning the updated session.
func (s Session) AddNote(note string) Session {
	s.Notes = append(s.Notes, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), note))
	return s
}

// Duration returns how long the session has run, up to EndTime if set
// or now otherwise.
func (s Session) Duration() time.Duration {
	end := time.Now()
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return end.Sub(s.StartTime)
}

type sensorRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	SensorName string    `json:"sensor_name"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
}

// Export is the self-contained bundle produced by ExportSession,
// combining a session's metadata and its full event log.
type Export struct {
	Session    Session                  `json:"session"`
	Events     []events.ParanormalEvent `json:"events"`
	ExportedAt time.Time                `json:"exported_at"`
	Version    string                   `json:"version"`
}

// Recorder manages at most one active recording session at a time and
// the append-only logs backing it. Safe for concurrent use.
type Recorder struct {
	mu           sync.Mutex
	baseDir      string
	session      *Session
	eventFile    *os.File
	eventWriter  *bufio.Writer
	sensorFile   *os.File
	sensorWriter *bufio.Writer
}

// New returns a recorder rooted at baseDir, creating it if necessary.
func New(baseDir string) (*Recorder, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create recorder base dir: %w", err)
	}
	return &Recorder{baseDir: baseDir}, nil
}

// StartSession begins a new recording session. It fails with
// ErrSessionActive if a session is already in progress; the caller must
// end it first.
func (r *Recorder) StartSession(name, location string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return ErrSessionActive
	}

	session := newSession(name, location)
	sessionDir := filepath.Join(r.baseDir, session.ID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	eventFile, err := os.OpenFile(filepath.Join(sessionDir, "events.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create event log: %w", err)
	}
	sensorFile, err := os.OpenFile(filepath.Join(sessionDir, "sensors.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		eventFile.Close()
		return fmt.Errorf("create sensor log: %w", err)
	}

	r.eventFile = eventFile
	r.eventWriter = bufio.NewWriter(eventFile)
	r.sensorFile = sensorFile
	r.sensorWriter = bufio.NewWriter(sensorFile)
	r.session = &session

	if err := r.writeMetadataLocked(); err != nil {
		return err
	}

	log.Info().Str("session", name).Str("id", session.ID).Msg("recording session started")
	return nil
}

// EndSession closes the current session, if any, stamping its end time
// and flushing and closing both logs.
func (r *Recorder) EndSession() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endLocked()
}

func (r *Recorder) endLocked() (*Session, error) {
	if r.session == nil {
		return nil, nil
	}
	if err := r.endSessionLocked(); err != nil {
		return nil, err
	}
	ended := *r.session
	r.session = nil
	return &ended, nil
}

func (r *Recorder) endSessionLocked() error {
	now := time.Now()
	r.session.EndTime = &now

	if err := r.writeMetadataLocked(); err != nil {
		return err
	}

	if r.eventWriter != nil {
		r.eventWriter.Flush()
	}
	if r.sensorWriter != nil {
		r.sensorWriter.Flush()
	}
	if r.eventFile != nil {
		r.eventFile.Close()
	}
	if r.sensorFile != nil {
		r.sensorFile.Close()
	}

	log.Info().Str("session", r.session.Name).Int("events", r.session.EventCount).Msg("recording session ended")
	return nil
}

// writeMetadataLocked rewrites session.json atomically: write to a temp
// file, fsync, then rename over the original so a crash mid-write never
// leaves a truncated or partially-written metadata file.
func (r *Recorder) writeMetadataLocked() error {
	sessionDir := filepath.Join(r.baseDir, r.session.ID)
	metadataPath := filepath.Join(sessionDir, "session.json")
	tmpPath := metadataPath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create session metadata temp file: %w", err)
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r.session); err != nil {
		file.Close()
		return fmt.Errorf("encode session metadata: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync session metadata: %w", err)
	}
	file.Close()

	return os.Rename(tmpPath, metadataPath)
}

// RecordEvent appends event to the active session's event log and
// flushes immediately, so a recorded event always reaches disk before
// the caller moves on. A no-op when no session is active.
func (r *Recorder) RecordEvent(event events.ParanormalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := r.eventWriter.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := r.eventWriter.Flush(); err != nil {
		return fmt.Errorf("flush event log: %w", err)
	}

	r.session.EventCount++
	return r.writeMetadataLocked()
}

// RecordSensor appends a sensor snapshot to the active session's sensor
// log. A no-op when no session is active.
func (r *Recorder) RecordSensor(reading events.SensorReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}

	record := sensorRecord{
		Timestamp:  reading.Timestamp,
		SensorName: reading.SensorName,
		Value:      reading.Value,
		Unit:       reading.Unit,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal sensor record: %w", err)
	}
	if _, err := r.sensorWriter.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write sensor record: %w", err)
	}
	return r.sensorWriter.Flush()
}

// AddNote appends a timestamped note to the active session. A no-op
// when no session is active.
func (r *Recorder) AddNote(note string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return
	}
	*r.session = r.session.AddNote(note)
}

// ActiveSession returns a copy of the current session and whether one
// is in progress.
func (r *Recorder) ActiveSession() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return Session{}, false
	}
	return *r.session, true
}

// ListSessions returns every session this recorder has metadata for,
// newest first.
func (r *Recorder) ListSessions() ([]Session, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	sessions := make([]Session, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metadataPath := filepath.Join(r.baseDir, entry.Name(), "session.json")
		data, err := os.ReadFile(metadataPath)
		if err != nil {
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions, nil
}

// LoadEvents reads every event recorded for sessionID.
func (r *Recorder) LoadEvents(sessionID string) ([]events.ParanormalEvent, error) {
	path := filepath.Join(r.baseDir, sessionID, "events.jsonl")
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer file.Close()

	var out []events.ParanormalEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var event events.ParanormalEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		out = append(out, event)
	}
	return out, scanner.Err()
}

// ExportSession bundles a session's metadata and full event log into a
// single portable JSON file at outputPath.
func (r *Recorder) ExportSession(sessionID, outputPath string) error {
	metadataPath := filepath.Join(r.baseDir, sessionID, "session.json")
	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return fmt.Errorf("read session metadata: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("parse session metadata: %w", err)
	}

	eventList, err := r.LoadEvents(sessionID)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	export := Export{
		Session:    session,
		Events:     eventList,
		ExportedAt: time.Now(),
		Version:    "1.0",
	}

	out, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	log.Info().Str("session", sessionID).Str("output", outputPath).Msg("exported session")
	return nil
}
