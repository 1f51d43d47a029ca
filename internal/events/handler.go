package events

import "github.com/rs/zerolog/log"

// LoggingHandler is the default Handler: it logs events and sensor
// connectivity changes and does nothing else.
type LoggingHandler struct{}

func (LoggingHandler) OnEvent(event ParanormalEvent) {
	log.Info().
		Str("event_type", string(event.EventType)).
		Float64("confidence", event.Confidence).
		Str("id", event.ID).
		Msgf("paranormal event detected: %s (confidence %.1f%%)", event.EventType, event.Confidence*100)
}

func (LoggingHandler) OnSensorOffline(sensorName string) {
	log.Warn().Str("sensor_name", sensorName).Msg("sensor offline")
}

func (LoggingHandler) OnSensorOnline(sensorName string) {
	log.Info().Str("sensor_name", sensorName).Msg("sensor online")
}
