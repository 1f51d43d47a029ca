package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bad-antics/glowbarn/internal/config"
	"github.com/bad-antics/glowbarn/internal/events"
)

type fakeSource struct {
	ch chan events.SensorReading
}

func (f *fakeSource) Readings() <-chan events.SensorReading { return f.ch }

type fakeHandler struct {
	mu      sync.Mutex
	events  []events.ParanormalEvent
	offline []string
}

func (f *fakeHandler) OnEvent(e events.ParanormalEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeHandler) OnSensorOffline(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = append(f.offline, name)
}

func (f *fakeHandler) OnSensorOnline(name string) {}

func (f *fakeHandler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func testConfig() config.Config {
	return config.Config{
		Fusion: config.FusionConfig{
			AnomalyThreshold:    2.5,
			MinBaselineSamples:  5,
			CorrelationWindowMs: 5000,
			MinConfidence:       0.0,
		},
		EventChannelCapacity: 10,
		TriggerHistoryLimit:  10,
	}
}

func TestPipeline_RunProcessesReadingsIntoEvents(t *testing.T) {
	handler := &fakeHandler{}
	p := New(testConfig(), nil, nil, nil, handler)

	source := &fakeSource{ch: make(chan events.SensorReading, 20)}
	now := time.Now()
	for i := 0; i < 10; i++ {
		source.ch <- events.SensorReading{SensorName: "emf_1", Value: 1.0, Unit: "u", Timestamp: now, Quality: 1.0}
	}
	source.ch <- events.SensorReading{SensorName: "emf_1", Value: 100.0, Unit: "u", Timestamp: now, Quality: 1.0}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, source)
		close(done)
	}()

	require.Eventually(t, func() bool { return handler.count() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	close(source.ch)
	<-done
}

func TestPipeline_SweepOfflineSensorsNotifiesHandler(t *testing.T) {
	handler := &fakeHandler{}
	p := New(testConfig(), nil, nil, nil, handler)

	now := time.Now()
	p.status.Observe("emf_1", 1.0, now)
	p.SweepOfflineSensors(now.Add(10 * time.Minute))

	assert.Equal(t, []string{"emf_1"}, handler.offline)
}
