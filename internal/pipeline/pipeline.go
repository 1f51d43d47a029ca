// Package pipeline wires the fusion engine, trigger manager, recorder,
// and live feed into one running system: readings in one end, handled
// events out the other.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/baselinestore"
	"github.com/bad-antics/glowbarn/internal/config"
	"github.com/bad-antics/glowbarn/internal/events"
	"github.com/bad-antics/glowbarn/internal/fusion"
	"github.com/bad-antics/glowbarn/internal/livefeed"
	"github.com/bad-antics/glowbarn/internal/metrics"
	"github.com/bad-antics/glowbarn/internal/notifications"
	"github.com/bad-antics/glowbarn/internal/recorder"
	"github.com/bad-antics/glowbarn/internal/sensorstatus"
	"github.com/bad-antics/glowbarn/internal/triggers"
)

// Source is anything the pipeline can draw sensor readings from. The
// hardware abstraction layer satisfies this by wrapping a physical bus
// scan; tests satisfy it with a channel they write to directly.
type Source interface {
	Readings() <-chan events.SensorReading
}

// ChannelSource is a Source backed by a plain buffered channel. It's
// the seam a hardware driver (out of scope here) would sit behind in
// production, and what tests feed synthetic readings through directly.
type ChannelSource struct {
	ch chan events.SensorReading
}

// NewChannelSource returns a ChannelSource with the given buffer depth.
func NewChannelSource(capacity int) *ChannelSource {
	return &ChannelSource{ch: make(chan events.SensorReading, capacity)}
}

// Readings implements Source.
func (c *ChannelSource) Readings() <-chan events.SensorReading { return c.ch }

// Feed pushes a reading into the source, blocking if its buffer is
// full.
func (c *ChannelSource) Feed(reading events.SensorReading) {
	c.ch <- reading
}

// Close signals that no more readings will be fed, causing the
// ingestor goroutine to exit once it drains what's buffered.
func (c *ChannelSource) Close() {
	close(c.ch)
}

// Pipeline owns the fusion engine and the goroutines that drain a
// reading source into classified, recorded, and triggered events.
type Pipeline struct {
	cfg     config.Config
	engine  *fusion.Engine
	status  *sensorstatus.Tracker
	manager *triggers.Manager
	rec     *recorder.Recorder
	hub     *livefeed.Hub
	store   *baselinestore.Store
	handler events.Handler

	eventCh chan events.ParanormalEvent

	stop   chan struct{}
	wg     sync.WaitGroup
}

// New assembles a pipeline from cfg. rec and hub may be nil if
// recording or the live feed aren't enabled; store may be nil if
// baseline checkpointing is disabled.
func New(cfg config.Config, rec *recorder.Recorder, hub *livefeed.Hub, store *baselinestore.Store, handler events.Handler) *Pipeline {
	status := sensorstatus.New(2 * time.Minute)
	engine := fusion.NewEngine(cfg.Fusion, status)

	manager := triggers.NewManager(
		triggers.NewDispatcher(notifications.Client{}, recordStartFunc(rec)),
		cfg.TriggerHistoryLimit,
	)
	manager.LoadDefaults()

	return &Pipeline{
		cfg:     cfg,
		engine:  engine,
		status:  status,
		manager: manager,
		rec:     rec,
		hub:     hub,
		store:   store,
		handler: handler,
		eventCh: make(chan events.ParanormalEvent, cfg.EventChannelCapacity),
		stop:    make(chan struct{}),
	}
}

// Manager exposes the trigger manager, e.g. for an admin API to
// enable/disable individual triggers.
func (p *Pipeline) Manager() *triggers.Manager { return p.manager }

// Engine exposes the fusion engine, e.g. for checkpoint wiring.
func (p *Pipeline) Engine() *fusion.Engine { return p.engine }

// Run starts the ingestor and event-consumer goroutines and blocks
// until ctx is cancelled, then drains and shuts everything down in
// order: ingestion stops, the consumer finishes the events already in
// flight, and the recording session (if any) is closed last.
func (p *Pipeline) Run(ctx context.Context, source Source) {
	p.wg.Add(2)
	go p.ingest(ctx, source)
	go p.consume(ctx)

	<-ctx.Done()
	log.Info().Msg("pipeline shutting down")

	close(p.stop)
	p.wg.Wait()

	if p.rec != nil {
		if session, err := p.rec.EndSession(); err != nil {
			log.Error().Err(err).Msg("failed to end recording session on shutdown")
		} else if session != nil {
			log.Info().Str("session", session.Name).Int("events", session.EventCount).Msg("recording session ended")
		}
	}

	log.Info().Msg("pipeline shutdown complete")
}

func (p *Pipeline) ingest(ctx context.Context, source Source) {
	defer p.wg.Done()

	readings := source.Readings()
	for {
		select {
		case reading, ok := <-readings:
			if !ok {
				return
			}
			p.processReading(reading)

		case <-p.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) processReading(reading events.SensorReading) {
	if p.rec != nil {
		if err := p.rec.RecordSensor(reading); err != nil {
			log.Error().Err(err).Str("sensor", reading.SensorName).Msg("failed to record sensor reading")
		}
	}

	event, ok := p.engine.ProcessReading(reading, reading.Timestamp)
	if !ok {
		return
	}

	select {
	case p.eventCh <- event:
	default:
		log.Warn().Str("event_id", event.ID).Msg("event channel full, dropping event")
		metrics.Incr("events.dropped")
	}
}

func (p *Pipeline) consume(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case event := <-p.eventCh:
			p.dispatch(ctx, event)

		case <-p.stop:
			// Drain whatever is already queued before returning.
			for {
				select {
				case event := <-p.eventCh:
					p.dispatch(ctx, event)
				default:
					return
				}
			}
		}
	}
}

func (p *Pipeline) dispatch(ctx context.Context, event events.ParanormalEvent) {
	metrics.Incr("events.dispatched", "type:"+string(event.EventType))

	if p.handler != nil {
		p.handler.OnEvent(event)
	}
	if p.rec != nil {
		if err := p.rec.RecordEvent(event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("failed to record event")
		}
	}
	if p.hub != nil {
		p.hub.Broadcast(event)
	}
	if _, err := p.manager.ProcessEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("failed to process triggers")
	}
}

// SweepOfflineSensors marks any sensor that hasn't reported recently as
// disconnected, notifying handler of each transition. Intended to be
// called periodically by the caller's own ticker.
func (p *Pipeline) SweepOfflineSensors(now time.Time) {
	for _, name := range p.status.SweepOffline(now) {
		if p.handler != nil {
			p.handler.OnSensorOffline(name)
		}
	}
}

func recordStartFunc(rec *recorder.Recorder) func(name string) error {
	if rec == nil {
		return nil
	}
	return func(name string) error {
		return rec.StartSession(name, "")
	}
}
