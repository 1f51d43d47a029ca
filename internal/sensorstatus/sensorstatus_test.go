package sensorstatus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObserve_FirstReadingMarksOnline(t *testing.T) {
	tr := New(time.Minute)
	now := time.Now()

	becameOnline := tr.Observe("emf_1", 0.9, now)
	assert.True(t, becameOnline)

	status, ok := tr.Get("emf_1")
	assert.True(t, ok)
	assert.True(t, status.Connected)
	assert.Equal(t, float64(float32(0.9)), status.Quality)
}

func TestObserve_SecondReadingDoesNotReannounceOnline(t *testing.T) {
	tr := New(time.Minute)
	now := time.Now()

	tr.Observe("emf_1", 0.9, now)
	becameOnline := tr.Observe("emf_1", 0.9, now.Add(time.Second))
	assert.False(t, becameOnline)
}

func TestSweepOffline_MarksStaleSensorsOffline(t *testing.T) {
	tr := New(10 * time.Second)
	now := time.Now()

	tr.Observe("emf_1", 0.9, now)

	offline := tr.SweepOffline(now.Add(20 * time.Second))
	assert.Equal(t, []string{"emf_1"}, offline)

	status, _ := tr.Get("emf_1")
	assert.False(t, status.Connected)
}

func TestRecordError_IncrementsWithoutTouchingConnectivity(t *testing.T) {
	tr := New(time.Minute)
	tr.RecordError("emf_1")
	tr.RecordError("emf_1")

	status, ok := tr.Get("emf_1")
	assert.True(t, ok)
	assert.Equal(t, uint32(2), status.ErrorCount)
	assert.False(t, status.Connected)
}

func TestAll_ReturnsEveryTrackedSensor(t *testing.T) {
	tr := New(time.Minute)
	now := time.Now()
	tr.Observe("emf_1", 0.9, now)
	tr.Observe("temp_1", 0.8, now)

	assert.Len(t, tr.All(), 2)
}
