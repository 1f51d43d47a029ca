// Package events defines the data model shared by the fusion engine,
// the trigger manager, and the event recorder: readings in, classified
// paranormal events out.
package events

import (
	"fmt"
	"sync/atomic"
	"time"
)

// SensorReading is one immutable sample from a sensor. Producing an
// abstract stream of these satisfies the reading source contract; the
// core never talks to hardware directly.
type SensorReading struct {
	SensorName string
	Value      float64
	Unit       string
	Timestamp  time.Time
	Quality    float32 // 0..1
}

// EventType is the closed set of classifications the fusion engine can
// emit.
type EventType string

const (
	EmfAnomaly         EventType = "emf_anomaly"
	TemperatureAnomaly EventType = "temperature_anomaly"
	AudioAnomaly       EventType = "audio_anomaly"
	VisualAnomaly      EventType = "visual_anomaly"
	MotionDetected     EventType = "motion_detected"
	InfrasoundDetected EventType = "infrasound_detected"
	MultiSensorEvent   EventType = "multi_sensor_event"
	RfAnomaly          EventType = "rf_anomaly"
)

// Confidence is a coarse banding of the numeric confidence score.
type Confidence string

const (
	Low      Confidence = "low"
	Medium   Confidence = "medium"
	High     Confidence = "high"
	VeryHigh Confidence = "very_high"
)

// ConfidenceFromScore buckets a confidence score into its band.
func ConfidenceFromScore(score float64) Confidence {
	switch {
	case score >= 0.9:
		return VeryHigh
	case score >= 0.7:
		return High
	case score >= 0.5:
		return Medium
	default:
		return Low
	}
}

// SensorSnapshot captures one sensor's reading and its deviation from
// baseline at the moment an event was constructed.
type SensorSnapshot struct {
	SensorName string   `json:"sensor_name"`
	SensorType string   `json:"sensor_type"`
	Value      float64  `json:"value"`
	Unit       string   `json:"unit"`
	Baseline   *float64 `json:"baseline,omitempty"`
	Deviation  *float64 `json:"deviation,omitempty"`
}

// Location is optional place information attached to an event.
type Location struct {
	Name  string   `json:"name"`
	Zone  *string  `json:"zone,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Floor *int     `json:"floor,omitempty"`
}

// ParanormalEvent is a classified, confidence-scored record of one or
// more correlated sensor anomalies. Immutable once constructed.
type ParanormalEvent struct {
	ID              string            `json:"id"`
	EventType       EventType         `json:"event_type"`
	Timestamp       time.Time         `json:"timestamp"`
	Confidence      float64           `json:"confidence"`
	ConfidenceLevel Confidence        `json:"confidence_level"`
	SensorData      []SensorSnapshot  `json:"sensor_data"`
	Location        *Location         `json:"location,omitempty"`
	Metadata        map[string]string `json:"metadata"`
}

var eventSeq uint64

// NextEventID produces a monotonic millisecond-based ID suffixed with a
// per-process atomic counter, so concurrent events at the same
// millisecond never collide.
func NextEventID(now time.Time) string {
	seq := atomic.AddUint64(&eventSeq, 1)
	return fmt.Sprintf("evt_%d_%d", now.UnixMilli(), seq)
}

// NewEvent constructs a new event with the given type and confidence.
// timestamp should be the triggering reading's timestamp.
func NewEvent(eventType EventType, confidence float64, timestamp time.Time) ParanormalEvent {
	return ParanormalEvent{
		ID:              NextEventID(timestamp),
		EventType:       eventType,
		Timestamp:       timestamp,
		Confidence:      confidence,
		ConfidenceLevel: ConfidenceFromScore(confidence),
		SensorData:      make([]SensorSnapshot, 0, 1),
		Metadata:        make(map[string]string),
	}
}

// WithSensorData appends a sensor snapshot, returning the updated event.
func (e ParanormalEvent) WithSensorData(s SensorSnapshot) ParanormalEvent {
	e.SensorData = append(e.SensorData, s)
	return e
}

// WithMetadata sets a metadata key, returning the updated event.
func (e ParanormalEvent) WithMetadata(key, value string) ParanormalEvent {
	e.Metadata[key] = value
	return e
}

// WithLocation sets the event's location, returning the updated event.
func (e ParanormalEvent) WithLocation(loc Location) ParanormalEvent {
	e.Location = &loc
	return e
}

// Handler receives pipeline-level notifications about events and sensor
// connectivity. The event consumer task invokes Handler before handing
// an event to the recorder and trigger manager.
type Handler interface {
	OnEvent(event ParanormalEvent)
	OnSensorOffline(sensorName string)
	OnSensorOnline(sensorName string)
}
