package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeEmptyPayloadHasNoChecksum(t *testing.T) {
	c := CommandData{Opcode: 0x20}
	assert.Equal(t, []byte{0x20}, c.Encode())
}

func TestEncodeDeviceSelectionLiteral(t *testing.T) {
	c := CommandData{Opcode: 0x10, HasSizeField: true, Payload: []byte("DEV1")}
	assert.Equal(t, []byte{0x10, 0x04, 'D', 'E', 'V', '1', 0xDC}, c.Encode())
}

func TestEncode256ByteProgrammingWrapsSizeByte(t *testing.T) {
	payload := make([]byte, 4+256)
	for i := range payload {
		payload[i] = byte(i)
	}
	c := CommandData{Opcode: 0x50, HasSizeField: true, Payload: payload}
	got := c.Encode()
	require.Equal(t, byte(0x04), got[1], "260-byte payload must wrap the size byte to 0x04")
	require.Len(t, got, 1+1+len(payload)+1)
}

// Invariant 1: framing round-trip.
func TestRoundTripChecksum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		opcode := rapid.Byte().Draw(t, "opcode")
		payload := rapid.SliceOfN(rapid.Byte(), 0, 255).Draw(t, "payload")
		c := CommandData{Opcode: opcode, HasSizeField: true, Payload: payload}
		encoded := c.Encode()

		if len(payload) == 0 {
			// Opcode plus the 0x00 size byte; no checksum.
			require.Len(t, encoded, 2)
			return
		}

		var sum byte
		for _, b := range encoded {
			sum += b
		}
		require.Zero(t, sum, "sum of encoded bytes including checksum must wrap to zero")
	})
}

// Invariant 2: length-field boundary.
func TestLengthFieldBoundary(t *testing.T) {
	max := make([]byte, 255)
	c := CommandData{Opcode: 0x10, HasSizeField: true, Payload: max}
	got := c.Encode()
	assert.Equal(t, byte(0xFF), got[1])

	empty := CommandData{Opcode: 0x10, HasSizeField: true}
	gotEmpty := empty.Encode()
	assert.Equal(t, []byte{0x10, 0x00}, gotEmpty, "empty payload still gets a size byte and no checksum")
}

// Invariant 3: sized response width, table-driven per width.
func TestSizedResponseWidth(t *testing.T) {
	cases := []struct {
		name  string
		width Width
		wire  []byte
		n     int
	}{
		{"u8", Width8, []byte{0x30, 0x02, 0xAA, 0xBB, 0x00}, 2},
		{"u16", Width16, []byte{0x36, 0x00, 0x02, 0xAA, 0xBB, 0x00}, 2},
		{"u32", Width32, []byte{0x52, 0x00, 0x00, 0x00, 0x02, 0xAA, 0xBB, 0x00}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := bytes.NewReader(tc.wire)
			spec := Spec{Success: []byte{tc.wire[0]}, Shape: ShapeSized, Width: tc.width}
			result, err := Read(r, spec)
			require.NoError(t, err)
			require.False(t, result.IsError)
			assert.Len(t, result.Response.Payload, tc.n)
			assert.Zero(t, r.Len(), "checksum byte must be consumed")
		})
	}
}

func TestSizedResponseShortReadIsFatal(t *testing.T) {
	r := bytes.NewReader([]byte{0x30, 0x05, 0xAA})
	_, err := Read(r, Spec{Success: []byte{0x30}, Shape: ShapeSized, Width: Width8})
	require.Error(t, err)
}

// E2E-1: SupportedDeviceInquiry response.
func TestE2ESupportedDeviceInquiryResponse(t *testing.T) {
	wire := []byte{
		0x30, 0x14,
		0x02, 0x08, 'D', 'E', 'V', '1', 'A', 'B', 'C', 'D',
		0x09, 'D', 'E', 'V', '2', 'V', 'W', 'X', 'Y', 'Z',
		0xC6,
	}
	result, err := Read(bytes.NewReader(wire), Spec{Success: []byte{0x30}, Shape: ShapeSized, Width: Width8})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, byte(0x30), result.Response.FirstByte)
	assert.Len(t, result.Response.Payload, 0x14)
}

// E2E-2: DeviceSelection success/failure.
func TestE2EDeviceSelectionOutcome(t *testing.T) {
	ok, err := Read(bytes.NewReader([]byte{0x06}), Spec{
		Success: []byte{0x06}, Shape: ShapeSimple, HasError: true, ErrorFirst: 0x90,
	})
	require.NoError(t, err)
	assert.False(t, ok.IsError)

	fail, err := Read(bytes.NewReader([]byte{0x90, 0x21}), Spec{
		Success: []byte{0x06}, Shape: ShapeSimple, HasError: true, ErrorFirst: 0x90,
	})
	require.NoError(t, err)
	require.True(t, fail.IsError)
	assert.Equal(t, byte(0x21), fail.ErrorCode)
}

// E2E-4: ProgrammingErasureStateTransition, first byte itself carries
// meaning (Disabled/Enabled) rather than being a single fixed success byte.
func TestE2EProgrammingErasureStateTransition(t *testing.T) {
	spec := Spec{Success: []byte{0x26, 0x16}, Shape: ShapeSimple, HasError: true, ErrorFirst: 0xC0}

	disabled, err := Read(bytes.NewReader([]byte{0x26}), spec)
	require.NoError(t, err)
	assert.Equal(t, byte(0x26), disabled.Response.FirstByte)

	enabled, err := Read(bytes.NewReader([]byte{0x16}), spec)
	require.NoError(t, err)
	assert.Equal(t, byte(0x16), enabled.Response.FirstByte)

	mismatch, err := Read(bytes.NewReader([]byte{0xC0, 0x51}), spec)
	require.NoError(t, err)
	require.True(t, mismatch.IsError)
	assert.Equal(t, byte(0x51), mismatch.ErrorCode)
}
