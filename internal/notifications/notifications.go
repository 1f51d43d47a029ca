// Package notifications pushes human-facing alerts to ntfy.sh, used by
// the Notify trigger action.
package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/env"
)

// Notifier sends a titled message to whatever channel a caller doesn't
// need to know about. Trigger actions depend on this interface rather
// than the package directly so tests can substitute a fake.
type Notifier interface {
	Send(title, message string) error
}

var client *http.Client
var topic string
var initialized bool

// Init wires up the package-level ntfy.sh client from env.Cfg. A blank
// topic disables notifications without treating it as an error.
func Init() {
	if env.Cfg.Notifications.NtfyTopic == "" {
		log.Warn().Msg("ntfy topic not configured - notifications disabled")
		return
	}

	client = &http.Client{Timeout: 10 * time.Second}
	topic = env.Cfg.Notifications.NtfyTopic
	initialized = true

	log.Info().Str("topic", topic).Msg("ntfy notifications initialized")
}

// Send posts a notification to ntfy.sh.
func Send(title, message string) error {
	if !initialized {
		return fmt.Errorf("notifications not initialized")
	}

	url := fmt.Sprintf("https://ntfy.sh/%s", topic)

	payload := map[string]interface{}{
		"topic":   topic,
		"title":   title,
		"message": message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned non-success status: %d", resp.StatusCode)
	}

	log.Debug().Str("title", title).Int("status", resp.StatusCode).Msg("notification sent")
	return nil
}

// Client is a Notifier backed by the package-level ntfy.sh client,
// handed to the trigger manager so it never imports this package's
// globals directly.
type Client struct{}

func (Client) Send(title, message string) error {
	return Send(title, message)
}
