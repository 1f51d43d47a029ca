// Package fusion combines multiple sensor inputs using online statistics
// to classify anomalies and boost confidence when several sensors agree.
package fusion

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/baseline"
	"github.com/bad-antics/glowbarn/internal/config"
	"github.com/bad-antics/glowbarn/internal/events"
	"github.com/bad-antics/glowbarn/internal/readingwindow"
	"github.com/bad-antics/glowbarn/internal/sensorstatus"
)

// Engine turns raw sensor readings into classified, confidence-scored
// events. A single Engine is shared by every ingestor goroutine; all of
// its state is guarded internally and safe for concurrent use.
type Engine struct {
	cfg      config.FusionConfig
	registry *baseline.Registry
	window   *readingwindow.Window
	status   *sensorstatus.Tracker
}

// NewEngine constructs a fusion engine from cfg. status may be nil if
// the caller doesn't care about connectivity tracking.
func NewEngine(cfg config.FusionConfig, status *sensorstatus.Tracker) *Engine {
	if status == nil {
		status = sensorstatus.New(2 * time.Minute)
	}
	correlationWindow := time.Duration(cfg.CorrelationWindowMs) * time.Millisecond
	return &Engine{
		cfg:      cfg,
		registry: baseline.NewRegistry(),
		window:   readingwindow.New(2 * correlationWindow),
		status:   status,
	}
}

// Registry exposes the underlying baseline registry, used by
// internal/baselinestore to checkpoint and restore warm-up state.
func (e *Engine) Registry() *baseline.Registry {
	return e.registry
}

// ProcessReading folds one reading into the running baseline and, once
// warm-up has completed, checks it for anomaly. It returns a classified
// event when the reading (alone or with correlated sensors) clears both
// the anomaly threshold and the configured confidence floor; otherwise
// it returns false.
func (e *Engine) ProcessReading(reading events.SensorReading, now time.Time) (events.ParanormalEvent, bool) {
	e.status.Observe(reading.SensorName, reading.Quality, now)
	e.window.Append(now, reading)

	valid := e.registry.Update(reading.SensorName, reading.Value, now, e.cfg.MinBaselineSamples)
	if !valid {
		snap, _ := e.registry.Get(reading.SensorName)
		log.Debug().
			Str("sensor", reading.SensorName).
			Uint64("samples", snap.SampleCount).
			Uint64("required", e.cfg.MinBaselineSamples).
			Msg("collecting baseline")
		return events.ParanormalEvent{}, false
	}

	zScore := e.registry.ZScore(reading.SensorName, reading.Value)
	if math.Abs(zScore) <= e.cfg.AnomalyThreshold {
		return events.ParanormalEvent{}, false
	}

	baseConfidence := e.calculateConfidence(zScore)
	correlated := e.findCorrelatedAnomalies(reading.SensorName, now)
	finalConfidence := math.Min(baseConfidence+0.1*float64(len(correlated)), 0.99)

	if finalConfidence < e.cfg.MinConfidence {
		return events.ParanormalEvent{}, false
	}

	snap, _ := e.registry.Get(reading.SensorName)
	eventType := e.classifyEvent(reading.SensorName, correlated)

	event := events.NewEvent(eventType, finalConfidence, reading.Timestamp)
	event = event.WithSensorData(events.SensorSnapshot{
		SensorName: reading.SensorName,
		SensorType: sensorType(reading.SensorName),
		Value:      reading.Value,
		Unit:       reading.Unit,
		Baseline:   floatPtr(snap.Mean),
		Deviation:  floatPtr(zScore),
	})
	event = event.WithMetadata("z_score", strconv.FormatFloat(zScore, 'f', 2, 64))
	event = event.WithMetadata("correlated_sensors", strconv.Itoa(len(correlated)))

	for _, entry := range correlated {
		corrSnap, ok := e.registry.Get(entry.Reading.SensorName)
		if !ok {
			continue
		}
		event = event.WithSensorData(events.SensorSnapshot{
			SensorName: entry.Reading.SensorName,
			SensorType: sensorType(entry.Reading.SensorName),
			Value:      entry.Reading.Value,
			Unit:       entry.Reading.Unit,
			Baseline:   floatPtr(corrSnap.Mean),
			Deviation:  floatPtr(e.registry.ZScore(entry.Reading.SensorName, entry.Reading.Value)),
		})
	}

	if e.cfg.DefaultLocationName != "" {
		loc := events.Location{Name: e.cfg.DefaultLocationName}
		if e.cfg.DefaultLocationZone != "" {
			zone := e.cfg.DefaultLocationZone
			loc.Zone = &zone
		}
		event = event.WithLocation(loc)
	}

	return event, true
}

// calculateConfidence maps a z-score to a base confidence via a
// sigmoid-like curve that saturates as the score rises above threshold.
func (e *Engine) calculateConfidence(zScore float64) float64 {
	absZ := math.Abs(zScore)
	base := 1.0 - math.Exp(-0.5*(absZ-e.cfg.AnomalyThreshold))
	return clamp(base, 0.0, 0.95)
}

// findCorrelatedAnomalies returns every other recent reading, within the
// correlation window, whose own baseline also reads anomalous at a
// softer threshold (0.8x the primary anomaly threshold).
func (e *Engine) findCorrelatedAnomalies(excludeSensor string, now time.Time) []readingwindow.Entry {
	window := time.Duration(e.cfg.CorrelationWindowMs) * time.Millisecond
	candidates := e.window.Scan(now, window, excludeSensor)

	out := make([]readingwindow.Entry, 0, len(candidates))
	for _, entry := range candidates {
		if e.registry.IsAnomalous(entry.Reading.SensorName, entry.Reading.Value, e.cfg.AnomalyThreshold*0.8) {
			out = append(out, entry)
		}
	}
	return out
}

// classifyEvent picks the event type for the triggering sensor, folding
// to MultiSensorEvent once two or more sensors have corroborated.
func (e *Engine) classifyEvent(primarySensor string, correlated []readingwindow.Entry) events.EventType {
	if len(correlated) >= 2 {
		return events.MultiSensorEvent
	}

	switch sensorType(primarySensor) {
	case "emf":
		return events.EmfAnomaly
	case "temperature":
		return events.TemperatureAnomaly
	case "audio":
		return events.AudioAnomaly
	case "camera":
		return events.VisualAnomaly
	case "motion":
		return events.MotionDetected
	case "infrasound":
		return events.InfrasoundDetected
	case "sdr":
		return events.RfAnomaly
	default:
		return events.EmfAnomaly
	}
}

// sensorType derives a coarse sensor category from its name by substring
// match, mirroring the naming conventions sensors register under.
func sensorType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "emf"), strings.Contains(lower, "mag"), strings.Contains(lower, "hmc"):
		return "emf"
	case strings.Contains(lower, "temp"), strings.Contains(lower, "mlx"), strings.Contains(lower, "bme"):
		return "temperature"
	case strings.Contains(lower, "audio"), strings.Contains(lower, "mic"):
		return "audio"
	case strings.Contains(lower, "pir"), strings.Contains(lower, "motion"):
		return "motion"
	case strings.Contains(lower, "camera"), strings.Contains(lower, "video"):
		return "camera"
	case strings.Contains(lower, "sdr"), strings.Contains(lower, "rtl"):
		return "sdr"
	case strings.Contains(lower, "infra"):
		return "infrasound"
	default:
		return "unknown"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floatPtr(v float64) *float64 { return &v }
