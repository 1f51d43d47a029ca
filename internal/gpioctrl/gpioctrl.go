// Package gpioctrl drives GPIO lines directly through sysfs, backing
// the GpioControl trigger action (alarms, strobe lights, relays).
package gpioctrl

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// WriteValue sets a GPIO pin high or low by writing to its sysfs value
// file. Exported as a package-level var so tests can substitute a fake
// without touching the filesystem.
var WriteValue = func(pin uint32, high bool) error {
	path := fmt.Sprintf("/sys/class/gpio/gpio%d/value", pin)

	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open gpio%d: %w", pin, err)
	}
	defer file.Close()

	value := "0"
	if high {
		value = "1"
	}

	if _, err := file.WriteString(value); err != nil {
		return fmt.Errorf("write gpio%d: %w", pin, err)
	}
	return nil
}

// Set drives pin to the given state, logging the outcome rather than
// failing the caller: a missing sysfs entry (no hardware attached, or
// running off-device) shouldn't abort trigger processing.
func Set(pin uint32, high bool) {
	log.Info().Uint32("pin", pin).Bool("high", high).Msg("gpio write")

	if err := WriteValue(pin, high); err != nil {
		log.Warn().Err(err).Uint32("pin", pin).Msg("gpio write failed")
	}
}

// ParsePin parses a decimal pin number from a string.
func ParsePin(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
