// Package metrics emits pipeline telemetry to a Datadog agent over
// statsd. The pipeline counts dispatched events (tagged by event type)
// and events dropped because the event channel was full.
package metrics

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/env"
)

var client *statsd.Client

// Init wires up the package-level statsd client from env.Cfg. A
// disabled config or a dial failure leaves client nil, and every metric
// function becomes a no-op rather than an error.
func Init() {
	if !env.Cfg.Metrics.Enabled {
		log.Info().Msg("metrics disabled")
		return
	}

	c, err := statsd.New(env.Cfg.Metrics.StatsdAddr)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create statsd client")
		return
	}
	c.Namespace = "glowbarn."
	client = c

	log.Info().Str("addr", env.Cfg.Metrics.StatsdAddr).Msg("metrics initialized")
}

// Gauge reports a point-in-time value, e.g. current event channel depth.
func Gauge(name string, value float64, tags ...string) {
	if client == nil {
		return
	}
	if err := client.Gauge(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit gauge")
	}
}

// Incr increments a counter, e.g. one per dispatched event.
func Incr(name string, tags ...string) {
	if client == nil {
		return
	}
	if err := client.Incr(name, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit counter")
	}
}

// Timing reports a duration in milliseconds, e.g. fusion processing
// latency per reading.
func Timing(name string, ms float64, tags ...string) {
	if client == nil {
		return
	}
	if err := client.Histogram(name, ms, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit timing")
	}
}
