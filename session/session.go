// Package session drives a boot-mode target through the phase-ordered
// handshake, bit-rate negotiation, and programming/erasure sequence: a
// chain of phase types, each exposing only the operations valid in that
// phase, each transition consuming its predecessor.
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"rxprog.dev/command"
	"rxprog.dev/frame"
	"rxprog.dev/transport"
)

// ConnectErrorKind distinguishes the three ways the initial baud-rate
// handshake can fail.
type ConnectErrorKind int

const (
	NoResponse ConnectErrorKind = iota
	BadResponse
	Failed
)

func (k ConnectErrorKind) String() string {
	switch k {
	case NoResponse:
		return "NoResponse"
	case BadResponse:
		return "BadResponse"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ConnectError reports a failed connect handshake.
type ConnectError struct {
	Kind ConnectErrorKind
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("session: connect: %s", e.Kind)
}

// ErrIDCodeProtected is returned by EnterProgrammingErasure when the
// device reports ID-code protection enabled. ID-code-protected flows are
// unsupported; the core never waits for a code.
var ErrIDCodeProtected = errors.New("session: device has ID code protection enabled")

var probeBaudRates = [...]uint32{9600, 4800, 2400, 1200}

const (
	probeAttemptsPerBaud = 30
	probeSleep           = 10 * time.Millisecond
)

// Connect drives the initial baud-rate handshake: reset the target into
// boot mode, clear buffers, then probe descending baud rates with a
// paced 0x00 byte until the device responds, confirm with the 0x55/0xE6
// exchange, and return the Connected phase.
func Connect(target transport.Target, logger *log.Logger) (*Connected, error) {
	if err := target.ResetInto(transport.ModeBoot); err != nil {
		return nil, fmt.Errorf("session: reset into boot mode: %w", err)
	}
	if err := target.ClearBuffers(); err != nil {
		return nil, fmt.Errorf("session: clear buffers: %w", err)
	}

	found := false
	for _, baud := range probeBaudRates {
		if err := target.SetBaudRate(baud); err != nil {
			return nil, fmt.Errorf("session: set baud rate %d: %w", baud, err)
		}
		logf(logger, "probing at %d baud", baud)
		for i := 0; i < probeAttemptsPerBaud; i++ {
			if _, err := target.Write([]byte{0x00}); err != nil {
				return nil, fmt.Errorf("session: probe write: %w", err)
			}
			time.Sleep(probeSleep)
			n, err := target.BytesToRead()
			if err != nil {
				return nil, fmt.Errorf("session: probe poll: %w", err)
			}
			if n >= 1 {
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		return nil, &ConnectError{Kind: NoResponse}
	}

	ack, err := readOneByte(target)
	if err != nil {
		return nil, fmt.Errorf("session: read probe ack: %w", err)
	}
	if ack != 0x00 {
		return nil, &ConnectError{Kind: BadResponse}
	}

	if _, err := target.Write([]byte{0x55}); err != nil {
		return nil, fmt.Errorf("session: send sync byte: %w", err)
	}
	sync, err := readOneByte(target)
	if err != nil {
		return nil, fmt.Errorf("session: read sync response: %w", err)
	}
	switch sync {
	case 0xE6:
		logf(logger, "connected")
		return &Connected{target: target, logger: logger}, nil
	case 0xFF:
		return nil, &ConnectError{Kind: Failed}
	default:
		return nil, &ConnectError{Kind: BadResponse}
	}
}

func readOneByte(r io.Reader) (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

func send(target transport.Target, data frame.CommandData) error {
	if _, err := target.Write(data.Encode()); err != nil {
		return fmt.Errorf("session: write command 0x%02x: %w", data.Opcode, err)
	}
	return nil
}

func receive(target transport.Target, spec frame.Spec) (frame.Result, error) {
	result, err := frame.Read(target, spec)
	if err != nil {
		return frame.Result{}, fmt.Errorf("session: read response: %w", err)
	}
	return result, nil
}
