// Package frame implements the boot-mode wire format: encoding a command
// into bytes with an optional size field and checksum, and decoding a
// response whose shape (simple byte, sized payload, or error) is declared
// by the caller per command.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CommandData is the input to the L1 encoder: an opcode, whether a
// one-byte size field precedes the payload, and the payload itself.
type CommandData struct {
	Opcode       byte
	HasSizeField bool
	Payload      []byte
}

// Encode produces the wire bytes for c: opcode, optional size byte,
// payload, and a trailing checksum byte when the payload is non-empty.
//
// The size byte is a plain byte conversion of len(c.Payload), which wraps
// for payloads longer than 255 bytes rather than failing. The 256-byte
// programming command relies on this: a 260-byte payload produces a size
// byte of 0x04, which is the protocol's documented behavior, not a bug.
func (c CommandData) Encode() []byte {
	buf := make([]byte, 0, len(c.Payload)+3)
	buf = append(buf, c.Opcode)
	if c.HasSizeField {
		buf = append(buf, byte(len(c.Payload)))
	}
	buf = append(buf, c.Payload...)
	if len(c.Payload) != 0 {
		buf = append(buf, Checksum(buf))
	}
	return buf
}

// Checksum returns the two's-complement negation of the unsigned sum of
// data, mod 256: the single trailing checksum byte that, appended to
// data, makes the total sum of all bytes wrap to zero.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return -sum
}

// Width is the size of a sized response's length field.
type Width int

const (
	WidthNone Width = iota
	Width8
	Width16
	Width32
)

// Shape is the response body shape for a command.
type Shape int

const (
	// ShapeSimple responses are a single first byte, no body.
	ShapeSimple Shape = iota
	// ShapeSized responses carry a length-prefixed payload followed by
	// a checksum byte that is consumed but not verified.
	ShapeSized
)

// Spec declares how to parse the response to one command: the set of
// permitted success first bytes, the body shape (and, for sized bodies,
// the length-field width), and the single permitted error first byte, if
// the command has an error branch at all.
type Spec struct {
	Success    []byte
	Shape      Shape
	Width      Width
	HasError   bool
	ErrorFirst byte
}

// Response is a successfully parsed, non-error response.
type Response struct {
	FirstByte byte
	Payload   []byte
}

// Result is the outcome of a successful Read: either a Response or,
// when the device reported a domain failure, an error code.
type Result struct {
	Response  Response
	ErrorCode byte
	IsError   bool
}

// Read parses exactly one response from r according to spec. The
// returned error is non-nil only for fatal framing/IO failures
// (unexpected first byte, short read) that leave the device desynced;
// a domain-level failure reported by the device is a nil error with
// Result.IsError set.
func Read(r io.Reader, spec Spec) (Result, error) {
	first, err := readByte(r)
	if err != nil {
		return Result{}, fmt.Errorf("frame: read first byte: %w", err)
	}

	if spec.HasError && first == spec.ErrorFirst {
		code, err := readByte(r)
		if err != nil {
			return Result{}, fmt.Errorf("frame: read error code: %w", err)
		}
		return Result{IsError: true, ErrorCode: code}, nil
	}

	if !containsByte(spec.Success, first) {
		return Result{}, fmt.Errorf("frame: unexpected first byte 0x%02x", first)
	}

	switch spec.Shape {
	case ShapeSimple:
		return Result{Response: Response{FirstByte: first}}, nil
	case ShapeSized:
		n, err := readLength(r, spec.Width)
		if err != nil {
			return Result{}, fmt.Errorf("frame: read length: %w", err)
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return Result{}, fmt.Errorf("frame: read payload: %w", err)
		}
		if _, err := readByte(r); err != nil {
			return Result{}, fmt.Errorf("frame: read trailing checksum: %w", err)
		}
		return Result{Response: Response{FirstByte: first, Payload: payload}}, nil
	default:
		return Result{}, fmt.Errorf("frame: unknown shape %d", spec.Shape)
	}
}

func readLength(r io.Reader, w Width) (int, error) {
	switch w {
	case Width8:
		b, err := readByte(r)
		return int(b), err
	case Width16:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint16(buf[:])), nil
	case Width32:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint32(buf[:])), nil
	default:
		return 0, fmt.Errorf("frame: sized response with no width")
	}
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func containsByte(set []byte, b byte) bool {
	for _, s := range set {
		if s == b {
			return true
		}
	}
	return false
}
