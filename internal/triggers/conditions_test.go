package triggers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bad-antics/glowbarn/internal/events"
)

func newTestEvent(eventType events.EventType, confidence float64, at time.Time) events.ParanormalEvent {
	e := events.NewEvent(eventType, confidence, at)
	return e
}

func TestCondition_EventTypeIs(t *testing.T) {
	c := EventTypeIs(events.EmfAnomaly)
	now := time.Now()

	assert.True(t, c.Check(newTestEvent(events.EmfAnomaly, 0.5, now), nil))
	assert.False(t, c.Check(newTestEvent(events.AudioAnomaly, 0.5, now), nil))
}

func TestCondition_ConfidenceAbove(t *testing.T) {
	c := ConfidenceAbove(0.8)
	now := time.Now()

	assert.True(t, c.Check(newTestEvent(events.EmfAnomaly, 0.9, now), nil))
	assert.False(t, c.Check(newTestEvent(events.EmfAnomaly, 0.8, now), nil))
}

func TestCondition_EventBurst_CountsCurrentEvent(t *testing.T) {
	c := EventBurst(3, time.Minute)
	now := time.Now()

	history := []events.ParanormalEvent{
		newTestEvent(events.EmfAnomaly, 0.5, now.Add(-10*time.Second)),
	}
	current := newTestEvent(events.EmfAnomaly, 0.5, now)

	assert.False(t, c.Check(current, history))

	history = append(history, newTestEvent(events.EmfAnomaly, 0.5, now.Add(-5*time.Second)))
	assert.True(t, c.Check(current, history))
}

func TestCondition_EventBurst_IgnoresStaleHistory(t *testing.T) {
	c := EventBurst(2, 10*time.Second)
	now := time.Now()

	history := []events.ParanormalEvent{
		newTestEvent(events.EmfAnomaly, 0.5, now.Add(-time.Hour)),
	}
	current := newTestEvent(events.EmfAnomaly, 0.5, now)

	assert.False(t, c.Check(current, history))
}

func TestCondition_SensorAnomaly_MatchesPatternAndThreshold(t *testing.T) {
	c := SensorAnomaly("temp", 2.0)
	now := time.Now()

	dev := 3.5
	event := newTestEvent(events.TemperatureAnomaly, 0.6, now).WithSensorData(events.SensorSnapshot{
		SensorName: "temp_hallway",
		Deviation:  &dev,
	})

	assert.True(t, c.Check(event, nil))
}

func TestCondition_SensorAnomaly_FalseWhenBelowThreshold(t *testing.T) {
	c := SensorAnomaly("temp", 5.0)
	now := time.Now()

	dev := 3.5
	event := newTestEvent(events.TemperatureAnomaly, 0.6, now).WithSensorData(events.SensorSnapshot{
		SensorName: "temp_hallway",
		Deviation:  &dev,
	})

	assert.False(t, c.Check(event, nil))
}

func TestCondition_All_ShortCircuits(t *testing.T) {
	c := All(EventTypeIs(events.EmfAnomaly), ConfidenceAbove(0.9))
	now := time.Now()

	assert.False(t, c.Check(newTestEvent(events.EmfAnomaly, 0.5, now), nil))
	assert.True(t, c.Check(newTestEvent(events.EmfAnomaly, 0.95, now), nil))
}

func TestCondition_Any_MatchesFirstSatisfied(t *testing.T) {
	c := Any(EventTypeIs(events.EmfAnomaly), EventTypeIs(events.AudioAnomaly))
	now := time.Now()

	assert.True(t, c.Check(newTestEvent(events.AudioAnomaly, 0.1, now), nil))
	assert.False(t, c.Check(newTestEvent(events.VisualAnomaly, 0.1, now), nil))
}
