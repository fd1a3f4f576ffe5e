// Package transport adapts a physical link to the byte-stream, baud-rate
// control, buffer-clearing, and reset capabilities the boot-mode session
// needs from its collaborator.
package transport

import "io"

// ResetMode is the pin configuration the collaborator should drive the
// target into before a connect handshake.
type ResetMode int

const (
	// ModeSingleChip resets the target into normal single-chip
	// execution (no boot-mode protocol).
	ModeSingleChip ResetMode = iota
	// ModeBoot resets the target into boot mode.
	ModeBoot
	// ModeUserBoot resets the target into the user boot area entry
	// point.
	ModeUserBoot
)

func (m ResetMode) String() string {
	switch m {
	case ModeSingleChip:
		return "single-chip"
	case ModeBoot:
		return "boot"
	case ModeUserBoot:
		return "user-boot"
	default:
		return "unknown"
	}
}

// Resetter drives the target's reset/mode pins. It may be interactive
// (prompting a human to press a button) or hardware-driven (toggling
// GPIO lines).
type Resetter interface {
	ResetInto(mode ResetMode) error
}

// Target is everything the session layer needs from the physical link:
// a byte stream, baud-rate control, buffer clearing, a non-blocking
// pending-byte count, and reset-into-mode.
type Target interface {
	io.ReadWriter
	SetBaudRate(bps uint32) error
	ClearBuffers() error
	BytesToRead() (uint32, error)
	ResetInto(mode ResetMode) error
}
