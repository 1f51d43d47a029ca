package triggers

import (
	"strings"
	"time"

	"github.com/bad-antics/glowbarn/internal/events"
)

// ConditionKind discriminates the Condition variants. Go has no sum
// types, so Condition carries every variant's fields and Kind picks
// which ones Check reads, the same shape the teacher uses for its
// device/model variants.
type ConditionKind string

const (
	CondEventType        ConditionKind = "event_type"
	CondConfidenceAbove  ConditionKind = "confidence_above"
	CondEventBurst       ConditionKind = "event_burst"
	CondSensorAnomaly    ConditionKind = "sensor_anomaly"
	CondAll              ConditionKind = "all"
	CondAny              ConditionKind = "any"
)

// Condition is a single trigger predicate, possibly compound.
type Condition struct {
	Kind ConditionKind

	EventType           events.EventType // CondEventType
	ConfidenceThreshold float64          // CondConfidenceAbove
	BurstCount          int              // CondEventBurst
	BurstWindow         time.Duration    // CondEventBurst
	SensorPattern       string           // CondSensorAnomaly
	SensorThreshold     float64          // CondSensorAnomaly
	Sub                 []Condition      // CondAll, CondAny
}

// EventTypeIs builds a condition matching one event type.
func EventTypeIs(t events.EventType) Condition {
	return Condition{Kind: CondEventType, EventType: t}
}

// ConfidenceAbove builds a condition matching events above a confidence
// threshold.
func ConfidenceAbove(threshold float64) Condition {
	return Condition{Kind: CondConfidenceAbove, ConfidenceThreshold: threshold}
}

// EventBurst builds a condition matching when count or more events
// (including the current one) fall within window.
func EventBurst(count int, window time.Duration) Condition {
	return Condition{Kind: CondEventBurst, BurstCount: count, BurstWindow: window}
}

// SensorAnomaly builds a condition matching when a sensor whose name
// contains pattern deviates past threshold in the event's sensor data.
func SensorAnomaly(pattern string, threshold float64) Condition {
	return Condition{Kind: CondSensorAnomaly, SensorPattern: pattern, SensorThreshold: threshold}
}

// All builds a compound condition requiring every sub-condition.
func All(conditions ...Condition) Condition {
	return Condition{Kind: CondAll, Sub: conditions}
}

// Any builds a compound condition requiring at least one sub-condition.
func Any(conditions ...Condition) Condition {
	return Condition{Kind: CondAny, Sub: conditions}
}

// Check evaluates the condition against event, given the event history
// accumulated so far (most recent last, not yet including event
// itself). Compound conditions short-circuit.
func (c Condition) Check(event events.ParanormalEvent, history []events.ParanormalEvent) bool {
	switch c.Kind {
	case CondEventType:
		return event.EventType == c.EventType

	case CondConfidenceAbove:
		return event.Confidence > c.ConfidenceThreshold

	case CondEventBurst:
		cutoff := event.Timestamp.Add(-c.BurstWindow)
		count := 1 // the current event
		for _, e := range history {
			if e.Timestamp.After(cutoff) {
				count++
			}
		}
		return count >= c.BurstCount

	case CondSensorAnomaly:
		pattern := strings.ToLower(c.SensorPattern)
		for _, s := range event.SensorData {
			if !strings.Contains(strings.ToLower(s.SensorName), pattern) {
				continue
			}
			if s.Deviation != nil && absFloat(*s.Deviation) > c.SensorThreshold {
				return true
			}
		}
		return false

	case CondAll:
		for _, sub := range c.Sub {
			if !sub.Check(event, history) {
				return false
			}
		}
		return true

	case CondAny:
		for _, sub := range c.Sub {
			if sub.Check(event, history) {
				return true
			}
		}
		return false

	default:
		return false
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
