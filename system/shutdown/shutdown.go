// Package shutdown performs last-resort, fail-fast process termination
// for errors the pipeline cannot recover from on its own.
package shutdown

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/gpioctrl"
)

// ActivePins lists GPIO pins the process may have left driven high
// (alarms, strobes, relays) that must be deactivated before exit so a
// crash doesn't leave hardware stuck on.
var ActivePins []uint32

// Shutdown deactivates every registered active pin and exits the
// process cleanly.
func Shutdown() {
	for _, pin := range ActivePins {
		gpioctrl.Set(pin, false)
	}
	log.Info().Msg("shutdown complete")
	os.Exit(0)
}

// ShutdownWithError logs err and msg before shutting down, used when a
// goroutine hits a condition it cannot continue past.
func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Shutdown()
}
