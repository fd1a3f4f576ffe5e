//go:build !tinygo

package transport

import (
	"time"

	"github.com/tarm/serial"
)

// SerialTarget backs Target with a physical serial port opened through
// tarm/serial, the same library the teacher's mjolnir driver uses to
// open its engraver connection.
type SerialTarget struct {
	cfg      serial.Config
	port     *serial.Port
	pending  []byte
	resetter Resetter
}

// OpenSerialTarget opens dev at baud bps and pairs it with resetter for
// ResetInto. tarm/serial has no live baud-rate-change primitive, so
// SetBaudRate closes and reopens the port at the new speed.
func OpenSerialTarget(dev string, baud int, resetter Resetter) (*SerialTarget, error) {
	cfg := serial.Config{Name: dev, Baud: baud, ReadTimeout: 10 * time.Millisecond}
	port, err := serial.OpenPort(&cfg)
	if err != nil {
		return nil, err
	}
	return &SerialTarget{cfg: cfg, port: port, resetter: resetter}, nil
}

func (t *SerialTarget) Read(p []byte) (int, error) {
	if len(t.pending) > 0 {
		n := copy(p, t.pending)
		t.pending = t.pending[n:]
		return n, nil
	}
	return t.port.Read(p)
}

func (t *SerialTarget) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *SerialTarget) SetBaudRate(bps uint32) error {
	if err := t.port.Close(); err != nil {
		return err
	}
	t.cfg.Baud = int(bps)
	port, err := serial.OpenPort(&t.cfg)
	if err != nil {
		return err
	}
	t.port = port
	return nil
}

func (t *SerialTarget) ClearBuffers() error {
	t.pending = nil
	return t.port.Flush()
}

// BytesToRead reports how many bytes are available without blocking.
// tarm/serial exposes no native "available" call; this polls with the
// port's short ReadTimeout and buffers whatever arrives for the next
// Read, so callers never lose bytes to the probe.
func (t *SerialTarget) BytesToRead() (uint32, error) {
	if len(t.pending) > 0 {
		return uint32(len(t.pending)), nil
	}
	buf := make([]byte, 64)
	n, err := t.port.Read(buf)
	if err != nil {
		return 0, nil
	}
	if n > 0 {
		t.pending = append(t.pending, buf[:n]...)
	}
	return uint32(len(t.pending)), nil
}

func (t *SerialTarget) ResetInto(mode ResetMode) error {
	return t.resetter.ResetInto(mode)
}

func (t *SerialTarget) Close() error {
	return t.port.Close()
}
