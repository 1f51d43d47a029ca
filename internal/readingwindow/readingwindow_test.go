package readingwindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bad-antics/glowbarn/internal/events"
)

func reading(name string, value float64) events.SensorReading {
	return events.SensorReading{SensorName: name, Value: value, Unit: "v"}
}

func TestAppend_PrunesOlderThanKeepWindow(t *testing.T) {
	w := New(10 * time.Second)
	base := time.Now()

	w.Append(base, reading("emf_1", 1))
	w.Append(base.Add(5*time.Second), reading("emf_1", 2))
	w.Append(base.Add(15*time.Second), reading("emf_1", 3)) // prunes entry at base

	assert.Equal(t, 2, w.Len())
}

func TestScan_ExcludesGivenSensorAndRespectsWindow(t *testing.T) {
	w := New(time.Minute)
	base := time.Now()

	w.Append(base, reading("emf_1", 1))
	w.Append(base.Add(1*time.Second), reading("temp_1", 99))
	w.Append(base.Add(2*time.Second), reading("pir_1", 1))

	results := w.Scan(base.Add(2*time.Second), 5*time.Second, "emf_1")
	assert.Len(t, results, 2)
	for _, e := range results {
		assert.NotEqual(t, "emf_1", e.Reading.SensorName)
	}
}

func TestScan_ExcludesFutureOrTooOldEntries(t *testing.T) {
	w := New(time.Minute)
	base := time.Now()

	w.Append(base, reading("emf_1", 1))
	w.Append(base.Add(10*time.Second), reading("temp_1", 2))

	results := w.Scan(base.Add(2*time.Second), 1*time.Second, "")
	assert.Empty(t, results)
}

func TestLen_BoundedUnderSustainedRate(t *testing.T) {
	w := New(1 * time.Second)
	base := time.Now()

	for i := 0; i < 1000; i++ {
		w.Append(base.Add(time.Duration(i)*time.Millisecond), reading("emf_1", float64(i)))
	}
	// keep window is 1s; sustained rate is 1 reading/ms, so the buffer
	// should settle around ~1000 entries at most, never unbounded.
	assert.LessOrEqual(t, w.Len(), 1001)
}
