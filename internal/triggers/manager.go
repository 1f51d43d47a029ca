// Package triggers evaluates incoming events against configurable
// conditions and carries out the matching actions, with per-trigger
// cooldowns and a bounded event history for burst detection.
package triggers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/events"
)

// Trigger pairs a condition with the action to run when it fires, gated
// by a cooldown so a sustained anomaly doesn't re-fire every reading.
type Trigger struct {
	Name      string
	Enabled   bool
	Condition Condition
	Action    Action
	Cooldown  time.Duration

	lastTriggered time.Time
}

// NewTrigger builds an enabled trigger with a 5 second default cooldown.
func NewTrigger(name string, condition Condition, action Action) *Trigger {
	return &Trigger{
		Name:      name,
		Enabled:   true,
		Condition: condition,
		Action:    action,
		Cooldown:  5 * time.Second,
	}
}

// WithCooldown returns t with its cooldown replaced.
func (t *Trigger) WithCooldown(cooldown time.Duration) *Trigger {
	t.Cooldown = cooldown
	return t
}

// checkAndExecute evaluates t against event and, if it fires, executes
// its action and records the firing time for cooldown purposes.
func (t *Trigger) checkAndExecute(ctx context.Context, event events.ParanormalEvent, history []events.ParanormalEvent, d Dispatcher) (bool, error) {
	if !t.Enabled {
		return false, nil
	}
	if !t.lastTriggered.IsZero() && event.Timestamp.Sub(t.lastTriggered) < t.Cooldown {
		return false, nil
	}
	if !t.Condition.Check(event, history) {
		return false, nil
	}

	correlationID := uuid.NewString()
	log.Info().Str("trigger", t.Name).Str("correlation_id", correlationID).Str("event_id", event.ID).Msg("trigger activated")

	// The attempt consumes the cooldown whether or not the action itself
	// succeeds; a failing action (e.g. a dead notification endpoint)
	// shouldn't let the trigger refire on every subsequent reading.
	t.lastTriggered = event.Timestamp
	if err := t.Action.Execute(ctx, event, d); err != nil {
		return false, err
	}
	return true, nil
}

// Manager holds the configured triggers and the bounded event history
// burst-detection conditions scan. Safe for concurrent use.
type Manager struct {
	mu           sync.Mutex
	triggers     []*Trigger
	history      []events.ParanormalEvent
	historyLimit int
	dispatcher   Dispatcher
}

// NewManager builds an empty trigger manager. historyLimit bounds the
// event history kept for EventBurst conditions; a limit of 0 defaults
// to 1000.
func NewManager(dispatcher Dispatcher, historyLimit int) *Manager {
	if historyLimit <= 0 {
		historyLimit = 1000
	}
	return &Manager{historyLimit: historyLimit, dispatcher: dispatcher}
}

// AddTrigger registers a new trigger.
func (m *Manager) AddTrigger(t *Trigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, t)
}

// RemoveTrigger deletes the trigger with the given name, if any.
func (m *Manager) RemoveTrigger(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.triggers[:0]
	for _, t := range m.triggers {
		if t.Name != name {
			out = append(out, t)
		}
	}
	m.triggers = out
}

// SetEnabled enables or disables the named trigger.
func (m *Manager) SetEnabled(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.triggers {
		if t.Name == name {
			t.Enabled = enabled
			return
		}
	}
}

// ListTriggers returns the currently registered triggers.
func (m *Manager) ListTriggers() []*Trigger {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Trigger, len(m.triggers))
	copy(out, m.triggers)
	return out
}

// CooldownSnapshot returns each trigger's last-fired time, for
// checkpointing by internal/triggerstate.
func (m *Manager) CooldownSnapshot() map[string]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := make(map[string]time.Time, len(m.triggers))
	for _, t := range m.triggers {
		if !t.lastTriggered.IsZero() {
			snap[t.Name] = t.lastTriggered
		}
	}
	return snap
}

// RestoreCooldowns seeds each named trigger's last-fired time from a
// checkpoint loaded at startup, so triggers that were mid-cooldown when
// the process last stopped don't immediately re-fire.
func (m *Manager) RestoreCooldowns(snap map[string]time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.triggers {
		if at, ok := snap[t.Name]; ok {
			t.lastTriggered = at
		}
	}
}

// ProcessEvent runs event through every registered trigger in order,
// then appends it to the history, trimming to historyLimit. It returns
// the names of triggers that fired.
func (m *Manager) ProcessEvent(ctx context.Context, event events.ParanormalEvent) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fired []string
	var errs []error
	for _, t := range m.triggers {
		ok, err := t.checkAndExecute(ctx, event, m.history, m.dispatcher)
		if err != nil {
			log.Error().Err(err).Str("trigger", t.Name).Msg("trigger action failed")
			errs = append(errs, err)
			continue
		}
		if ok {
			fired = append(fired, t.Name)
		}
	}

	m.history = append(m.history, event)
	if excess := len(m.history) - m.historyLimit; excess > 0 {
		m.history = m.history[excess:]
	}

	return fired, errors.Join(errs...)
}

// LoadDefaults registers the baseline trigger set: high-confidence EMF
// alerts, cold-spot temperature alerts, multi-sensor corroboration, and
// activity-burst detection.
func (m *Manager) LoadDefaults() {
	m.AddTrigger(NewTrigger(
		"high_emf_alert",
		All(
			EventTypeIs(events.EmfAnomaly),
			ConfidenceAbove(0.8),
		),
		MultipleActions(
			LogAction("warn", "High EMF anomaly detected! {confidence}"),
			PlaySoundAction("/usr/share/glowbarn/sounds/alert.wav"),
		),
	))

	m.AddTrigger(NewTrigger(
		"cold_spot_alert",
		All(
			EventTypeIs(events.TemperatureAnomaly),
			SensorAnomaly("temp", 3.0),
		),
		NotifyAction("Cold Spot Detected", "Temperature anomaly: {confidence} confidence"),
	).WithCooldown(30 * time.Second))

	m.AddTrigger(NewTrigger(
		"multi_sensor_alert",
		All(
			EventTypeIs(events.MultiSensorEvent),
			ConfidenceAbove(0.7),
		),
		MultipleActions(
			LogAction("warn", "Multi-sensor event! ID: {id}"),
			MarkTimestampAction("multi_sensor"),
		),
	))

	m.AddTrigger(NewTrigger(
		"activity_burst",
		EventBurst(5, 60*time.Second),
		MultipleActions(
			NotifyAction("Activity Burst", "High paranormal activity detected!"),
			StartRecordingAction("burst_recording"),
		),
	).WithCooldown(120 * time.Second))

	log.Info().Int("count", len(m.triggers)).Msg("loaded default triggers")
}
