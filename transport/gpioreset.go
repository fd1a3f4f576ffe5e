//go:build linux

package transport

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
)

// GPIOResetter drives a target's RESET and mode-select (MD) pins
// directly, for hosts with a GPIO header wired to the target (e.g. a
// Raspberry Pi), grounded on the teacher's wshat button driver's
// periph.io setup.
type GPIOResetter struct {
	Reset gpio.PinOut
	Mode  gpio.PinOut
}

// OpenGPIOResetter initializes the periph.io host drivers and returns a
// GPIOResetter driving the given reset and mode pins.
func OpenGPIOResetter(reset, mode gpio.PinOut) (*GPIOResetter, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("transport: gpio host init: %w", err)
	}
	return &GPIOResetter{Reset: reset, Mode: mode}, nil
}

// ResetInto strobes Reset low while Mode is held at the level that
// selects mode, then releases Reset.
func (g *GPIOResetter) ResetInto(mode ResetMode) error {
	level := gpio.High
	if mode == ModeBoot {
		level = gpio.Low
	}
	if err := g.Mode.Out(level); err != nil {
		return fmt.Errorf("transport: set mode pin: %w", err)
	}
	if err := g.Reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("transport: assert reset: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := g.Reset.Out(gpio.High); err != nil {
		return fmt.Errorf("transport: release reset: %w", err)
	}
	return nil
}
