package triggers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bad-antics/glowbarn/internal/events"
)

type fakeDispatcher struct {
	notifications  []string
	gpioCalls      []uint32
	recordRequests []string
	notifyErr      error
}

func (f *fakeDispatcher) Notify(title, body string) error {
	f.notifications = append(f.notifications, title+":"+body)
	return f.notifyErr
}

func (f *fakeDispatcher) SetGpio(pin uint32, high bool) {
	f.gpioCalls = append(f.gpioCalls, pin)
}

func (f *fakeDispatcher) StartRecording(name string) error {
	f.recordRequests = append(f.recordRequests, name)
	return nil
}

func TestManager_ProcessEvent_FiresMatchingTrigger(t *testing.T) {
	d := &fakeDispatcher{}
	m := NewManager(d, 10)
	m.AddTrigger(NewTrigger("emf_alert", EventTypeIs(events.EmfAnomaly), NotifyAction("EMF", "body")))

	fired, err := m.ProcessEvent(context.Background(), newTestEvent(events.EmfAnomaly, 0.5, time.Now()))
	assert.NoError(t, err)
	assert.Equal(t, []string{"emf_alert"}, fired)
	assert.Len(t, d.notifications, 1)
}

func TestManager_ProcessEvent_SkipsDisabledTrigger(t *testing.T) {
	d := &fakeDispatcher{}
	m := NewManager(d, 10)
	trigger := NewTrigger("emf_alert", EventTypeIs(events.EmfAnomaly), NotifyAction("EMF", "body"))
	trigger.Enabled = false
	m.AddTrigger(trigger)

	fired, err := m.ProcessEvent(context.Background(), newTestEvent(events.EmfAnomaly, 0.5, time.Now()))
	assert.NoError(t, err)
	assert.Empty(t, fired)
}

func TestManager_ProcessEvent_RespectsCooldown(t *testing.T) {
	d := &fakeDispatcher{}
	m := NewManager(d, 10)
	m.AddTrigger(NewTrigger("emf_alert", EventTypeIs(events.EmfAnomaly), NotifyAction("EMF", "body")).WithCooldown(time.Minute))

	now := time.Now()
	fired1, _ := m.ProcessEvent(context.Background(), newTestEvent(events.EmfAnomaly, 0.5, now))
	fired2, _ := m.ProcessEvent(context.Background(), newTestEvent(events.EmfAnomaly, 0.5, now.Add(time.Second)))

	assert.Equal(t, []string{"emf_alert"}, fired1)
	assert.Empty(t, fired2)
}

func TestManager_ProcessEvent_CooldownExpiresAfterWindow(t *testing.T) {
	d := &fakeDispatcher{}
	m := NewManager(d, 10)
	m.AddTrigger(NewTrigger("emf_alert", EventTypeIs(events.EmfAnomaly), NotifyAction("EMF", "body")).WithCooldown(time.Second))

	now := time.Now()
	m.ProcessEvent(context.Background(), newTestEvent(events.EmfAnomaly, 0.5, now))
	fired, _ := m.ProcessEvent(context.Background(), newTestEvent(events.EmfAnomaly, 0.5, now.Add(2*time.Second)))

	assert.Equal(t, []string{"emf_alert"}, fired)
}

func TestManager_ProcessEvent_ActionErrorStillConsumesCooldownAndPropagates(t *testing.T) {
	d := &fakeDispatcher{notifyErr: errors.New("ntfy unreachable")}
	m := NewManager(d, 10)
	m.AddTrigger(NewTrigger("emf_alert", EventTypeIs(events.EmfAnomaly), NotifyAction("EMF", "body")).WithCooldown(time.Minute))

	now := time.Now()
	fired1, err1 := m.ProcessEvent(context.Background(), newTestEvent(events.EmfAnomaly, 0.5, now))
	fired2, err2 := m.ProcessEvent(context.Background(), newTestEvent(events.EmfAnomaly, 0.5, now.Add(time.Second)))

	assert.Error(t, err1)
	assert.Empty(t, fired1)
	assert.NoError(t, err2)
	assert.Empty(t, fired2)
}

func TestManager_ProcessEvent_TrimsHistoryToLimit(t *testing.T) {
	d := &fakeDispatcher{}
	m := NewManager(d, 3)

	now := time.Now()
	for i := 0; i < 5; i++ {
		m.ProcessEvent(context.Background(), newTestEvent(events.EmfAnomaly, 0.5, now.Add(time.Duration(i)*time.Second)))
	}

	assert.Len(t, m.history, 3)
}

func TestManager_RemoveTrigger(t *testing.T) {
	d := &fakeDispatcher{}
	m := NewManager(d, 10)
	m.AddTrigger(NewTrigger("a", EventTypeIs(events.EmfAnomaly), NotifyAction("t", "b")))
	m.AddTrigger(NewTrigger("b", EventTypeIs(events.EmfAnomaly), NotifyAction("t", "b")))

	m.RemoveTrigger("a")
	names := make([]string, 0)
	for _, t := range m.ListTriggers() {
		names = append(names, t.Name)
	}
	assert.Equal(t, []string{"b"}, names)
}

func TestManager_SetEnabled(t *testing.T) {
	d := &fakeDispatcher{}
	m := NewManager(d, 10)
	m.AddTrigger(NewTrigger("a", EventTypeIs(events.EmfAnomaly), NotifyAction("t", "b")))

	m.SetEnabled("a", false)
	assert.False(t, m.ListTriggers()[0].Enabled)
}

func TestManager_LoadDefaults_RegistersFourTriggers(t *testing.T) {
	d := &fakeDispatcher{}
	m := NewManager(d, 10)
	m.LoadDefaults()

	assert.Len(t, m.ListTriggers(), 4)
}
