package triggers

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/events"
	"github.com/bad-antics/glowbarn/internal/gpioctrl"
	"github.com/bad-antics/glowbarn/internal/notifications"
)

// ActionKind discriminates the Action variants.
type ActionKind string

const (
	ActLog           ActionKind = "log"
	ActPlaySound     ActionKind = "play_sound"
	ActNotify        ActionKind = "notify"
	ActExecute       ActionKind = "execute"
	ActGpioControl   ActionKind = "gpio_control"
	ActStartRecord   ActionKind = "start_recording"
	ActMarkTimestamp ActionKind = "mark_timestamp"
	ActMultiple      ActionKind = "multiple"
)

// Action is a single trigger response, possibly compound.
type Action struct {
	Kind ActionKind

	LogLevel     string   // ActLog
	Message      string   // ActLog, ActNotify (body)
	SoundFile    string   // ActPlaySound
	Title        string   // ActNotify
	Command      string   // ActExecute
	Args         []string // ActExecute
	GpioPin      uint32   // ActGpioControl
	GpioHigh     bool     // ActGpioControl
	SessionName  string   // ActStartRecord
	Label        string   // ActMarkTimestamp
	Sub          []Action // ActMultiple
}

// LogAction builds an action that logs a templated message at level.
func LogAction(level, message string) Action {
	return Action{Kind: ActLog, LogLevel: level, Message: message}
}

// PlaySoundAction builds an action that plays a local sound file.
func PlaySoundAction(file string) Action {
	return Action{Kind: ActPlaySound, SoundFile: file}
}

// NotifyAction builds an action that pushes a notification.
func NotifyAction(title, body string) Action {
	return Action{Kind: ActNotify, Title: title, Message: body}
}

// ExecuteAction builds an action that runs an external command.
func ExecuteAction(command string, args ...string) Action {
	return Action{Kind: ActExecute, Command: command, Args: args}
}

// GpioControlAction builds an action that drives a GPIO pin.
func GpioControlAction(pin uint32, high bool) Action {
	return Action{Kind: ActGpioControl, GpioPin: pin, GpioHigh: high}
}

// StartRecordingAction builds an action that requests a new recording
// session.
func StartRecordingAction(name string) Action {
	return Action{Kind: ActStartRecord, SessionName: name}
}

// MarkTimestampAction builds an action that notes a labeled instant,
// used to bookmark a moment in an in-progress recording.
func MarkTimestampAction(label string) Action {
	return Action{Kind: ActMarkTimestamp, Label: label}
}

// MultipleActions builds a compound action executing each sub-action in
// order, stopping at the first error.
func MultipleActions(actions ...Action) Action {
	return Action{Kind: ActMultiple, Sub: actions}
}

// Dispatcher is everything an Action needs to carry out its side
// effects, injected by the trigger manager so this package never talks
// to concrete infrastructure directly.
type Dispatcher interface {
	Notify(title, body string) error
	SetGpio(pin uint32, high bool)
	StartRecording(name string) error
}

// Execute carries out the action against event, substituting the
// {event_type}, {confidence}, and {id} placeholders into any templated
// text.
func (a Action) Execute(ctx context.Context, event events.ParanormalEvent, d Dispatcher) error {
	switch a.Kind {
	case ActLog:
		msg := expand(a.Message, event)
		switch a.LogLevel {
		case "error":
			log.Error().Msg(msg)
		case "warn":
			log.Warn().Msg(msg)
		case "debug":
			log.Debug().Msg(msg)
		default:
			log.Info().Msg(msg)
		}
		return nil

	case ActPlaySound:
		log.Info().Str("file", a.SoundFile).Msg("playing sound")
		cmd := exec.CommandContext(ctx, "aplay", a.SoundFile)
		return cmd.Start()

	case ActNotify:
		body := expand(a.Message, event)
		log.Info().Str("title", a.Title).Str("body", body).Msg("notification")
		return d.Notify(a.Title, body)

	case ActExecute:
		log.Info().Str("command", a.Command).Strs("args", a.Args).Msg("executing action command")
		cmd := exec.CommandContext(ctx, a.Command, a.Args...)
		return cmd.Start()

	case ActGpioControl:
		d.SetGpio(a.GpioPin, a.GpioHigh)
		return nil

	case ActStartRecord:
		log.Info().Str("session", a.SessionName).Msg("start recording requested")
		return d.StartRecording(a.SessionName)

	case ActMarkTimestamp:
		log.Info().Str("label", a.Label).Time("at", time.Now()).Msg("timestamp marked")
		return nil

	case ActMultiple:
		for _, sub := range a.Sub {
			if err := sub.Execute(ctx, event, d); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown action kind: %s", a.Kind)
	}
}

func expand(template string, event events.ParanormalEvent) string {
	r := strings.NewReplacer(
		"{event_type}", string(event.EventType),
		"{confidence}", fmt.Sprintf("%.1f%%", event.Confidence*100),
		"{id}", event.ID,
	)
	return r.Replace(template)
}

// gpioDispatcher is the production Dispatcher, wiring notifications and
// gpioctrl into the Action executor.
type gpioDispatcher struct {
	notifier notifications.Notifier
	recorder func(name string) error
}

// NewDispatcher builds the production Dispatcher used by the pipeline.
// recordStart may be nil if the recorder isn't wired in, in which case
// StartRecording actions are logged and otherwise ignored.
func NewDispatcher(notifier notifications.Notifier, recordStart func(name string) error) Dispatcher {
	return &gpioDispatcher{notifier: notifier, recorder: recordStart}
}

func (g *gpioDispatcher) Notify(title, body string) error {
	if g.notifier == nil {
		return nil
	}
	return g.notifier.Send(title, body)
}

func (g *gpioDispatcher) SetGpio(pin uint32, high bool) {
	gpioctrl.Set(pin, high)
}

func (g *gpioDispatcher) StartRecording(name string) error {
	if g.recorder == nil {
		log.Warn().Str("session", name).Msg("no recorder wired, dropping start-recording action")
		return nil
	}
	return g.recorder(name)
}
