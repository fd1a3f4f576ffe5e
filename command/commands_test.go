package command

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"rxprog.dev/frame"
)

// Invariant 4: MultiplicationRatio codec.
func TestMultiplicationRatioCodec(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 127).Draw(t, "n")

		mul := MultiplyBy(n)
		require.Equal(t, byte(n), mul.Encode())
		decodedMul, err := DecodeMultiplicationRatio(mul.Encode())
		require.NoError(t, err)
		require.Equal(t, mul, decodedMul)

		div := DivideBy(n)
		require.Equal(t, byte(256-n), div.Encode())
		decodedDiv, err := DecodeMultiplicationRatio(div.Encode())
		require.NoError(t, err)
		require.Equal(t, div, decodedDiv)
	})
}

func TestMultiplicationRatioZeroRejected(t *testing.T) {
	_, err := DecodeMultiplicationRatio(0)
	require.Error(t, err)
}

// E2E-1
func TestSupportedDeviceInquiryRoundTrip(t *testing.T) {
	assert.Equal(t, []byte{0x20}, EncodeSupportedDeviceInquiry().Encode())

	// 0x14 counts the full 20-byte payload, including the leading device-
	// count byte (0x02) ahead of the two length-prefixed entries.
	wire := []byte{
		0x30, 0x14,
		0x02,
		0x08, 'D', 'E', 'V', '1', 'A', 'B', 'C', 'D',
		0x09, 'D', 'E', 'V', '2', 'V', 'W', 'X', 'Y', 'Z',
		0xC6,
	}
	result, err := frame.Read(bytes.NewReader(wire), SpecSupportedDeviceInquiry())
	require.NoError(t, err)
	devices, err := DecodeSupportedDeviceInquiry(result)
	require.NoError(t, err)
	assert.Equal(t, []SupportedDevice{
		{DeviceCode: "DEV1", SeriesName: "ABCD"},
		{DeviceCode: "DEV2", SeriesName: "VWXYZ"},
	}, devices)
}

// E2E-2
func TestDeviceSelectionOutcome(t *testing.T) {
	assert.Equal(t, []byte{0x10, 0x04, 'D', 'E', 'V', '1', 0xDC}, EncodeDeviceSelection("DEV1").Encode())

	ok, err := frame.Read(bytes.NewReader([]byte{0x06}), SpecDeviceSelection())
	require.NoError(t, err)
	require.NoError(t, DecodeDeviceSelection(ok))

	fail, err := frame.Read(bytes.NewReader([]byte{0x90, 0x21}), SpecDeviceSelection())
	require.NoError(t, err)
	derr := DecodeDeviceSelection(fail)
	require.Error(t, derr)
	var ce *Error
	require.ErrorAs(t, derr, &ce)
	assert.Equal(t, ErrDeviceCode, ce.Code)
}

// E2E-3
func TestNewBitRateSelectionWireBytes(t *testing.T) {
	data := EncodeNewBitRateSelection(0x00C0, 0x04E2, []MultiplicationRatio{MultiplyBy(4), DivideBy(2)})
	assert.Equal(t, []byte{0x3F, 0x07, 0x00, 0xC0, 0x04, 0xE2, 0x02, 0x04, 0xFE, 0x10}, data.Encode())

	result, err := frame.Read(bytes.NewReader([]byte{0x06}), SpecNewBitRateSelection())
	require.NoError(t, err)
	require.NoError(t, DecodeNewBitRateSelection(result))
}

// E2E-4
func TestProgrammingErasureStateTransitionOutcomes(t *testing.T) {
	assert.Equal(t, []byte{0x40}, EncodeProgrammingErasureStateTransition().Encode())

	disabled, err := frame.Read(bytes.NewReader([]byte{0x26}), SpecProgrammingErasureStateTransition())
	require.NoError(t, err)
	status, err := DecodeProgrammingErasureStateTransition(disabled)
	require.NoError(t, err)
	assert.Equal(t, IDCodeProtectionDisabled, status)

	enabled, err := frame.Read(bytes.NewReader([]byte{0x16}), SpecProgrammingErasureStateTransition())
	require.NoError(t, err)
	status, err = DecodeProgrammingErasureStateTransition(enabled)
	require.NoError(t, err)
	assert.Equal(t, IDCodeProtectionEnabled, status)

	mismatch, err := frame.Read(bytes.NewReader([]byte{0xC0, 0x51}), SpecProgrammingErasureStateTransition())
	require.NoError(t, err)
	_, err = DecodeProgrammingErasureStateTransition(mismatch)
	require.Error(t, err)
}

// E2E-5
func TestMemoryReadWireBytes(t *testing.T) {
	data := EncodeMemoryRead(UserArea, 0x12345678, 0x0A)
	assert.Equal(t, []byte{0x52, 0x09, 0x01, 0x12, 0x34, 0x56, 0x78, 0x00, 0x00, 0x00, 0x0A, 0x86}, data.Encode())

	payload := []byte{0x00, 0x00, 0x00, 0x0A, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 0x6D}
	wire := append([]byte{0x52}, payload...)
	result, err := frame.Read(bytes.NewReader(wire), SpecMemoryRead())
	require.NoError(t, err)
	got, err := DecodeMemoryRead(result)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
}

// E2E-6
func TestBlockErasureOutcomes(t *testing.T) {
	assert.Equal(t, []byte{0x58, 0x01, 0x38, 0x6F}, EncodeBlockErasure(0x38).Encode())

	ok, err := frame.Read(bytes.NewReader([]byte{0x06}), SpecBlockErasure())
	require.NoError(t, err)
	require.NoError(t, DecodeBlockErasure(ok))

	fail, err := frame.Read(bytes.NewReader([]byte{0xD8, 0x29}), SpecBlockErasure())
	require.NoError(t, err)
	derr := DecodeBlockErasure(fail)
	require.Error(t, derr)
	var ce *Error
	require.ErrorAs(t, derr, &ce)
	assert.Equal(t, ErrBlockNumber, ce.Code)
}

func TestProgramBlockSizeByteWraps(t *testing.T) {
	var payload [256]byte
	data := EncodeProgramBlock(EndOfProgrammingAddress, payload)
	encoded := data.Encode()
	assert.Equal(t, byte(0x04), encoded[1])
	assert.Equal(t, byte(0x50), encoded[0])
	assert.Len(t, encoded, 1+1+4+256+1)
}

func TestLockBitAddressPayloadDropsLowByte(t *testing.T) {
	data := EncodeReadLockBitStatus(UserArea, 0x12345678)
	assert.Equal(t, []byte{0x01, 0x12, 0x34, 0x56}, data.Payload)
}
