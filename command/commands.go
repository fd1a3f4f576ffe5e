package command

import (
	"encoding/binary"
	"fmt"

	"rxprog.dev/frame"
)

// --- SupportedDeviceInquiry (0x20) ---

func EncodeSupportedDeviceInquiry() frame.CommandData {
	return frame.CommandData{Opcode: 0x20}
}

var specSupportedDeviceInquiry = frame.Spec{Success: []byte{0x30}, Shape: frame.ShapeSized, Width: frame.Width8}

func SpecSupportedDeviceInquiry() frame.Spec { return specSupportedDeviceInquiry }

func DecodeSupportedDeviceInquiry(result frame.Result) ([]SupportedDevice, error) {
	data := result.Response.Payload
	if len(data) < 1 {
		return nil, fmt.Errorf("command: supported device inquiry payload is empty")
	}
	count := int(data[0])
	data = data[1:]
	devices := make([]SupportedDevice, 0, count)
	for len(data) > 0 {
		n := int(data[0])
		if n < 4 || n > len(data)-1 {
			return nil, fmt.Errorf("command: malformed supported device entry length %d", n)
		}
		entry := data[1 : 1+n]
		devices = append(devices, SupportedDevice{
			DeviceCode: string(entry[:4]),
			SeriesName: string(entry[4:]),
		})
		data = data[1+n:]
	}
	if len(devices) != count {
		return nil, fmt.Errorf("command: supported device inquiry declared %d devices, found %d", count, len(devices))
	}
	return devices, nil
}

// --- DeviceSelection (0x10) ---

func EncodeDeviceSelection(deviceCode string) frame.CommandData {
	return frame.CommandData{Opcode: 0x10, HasSizeField: true, Payload: []byte(deviceCode)}
}

func SpecDeviceSelection() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0x90}
}

var deviceSelectionErrors = map[byte]ErrorCode{0x11: ErrChecksum, 0x21: ErrDeviceCode}

func DecodeDeviceSelection(result frame.Result) error {
	if result.IsError {
		return mapError(result.ErrorCode, deviceSelectionErrors)
	}
	return nil
}

// --- ClockModeInquiry (0x21) ---

func EncodeClockModeInquiry() frame.CommandData { return frame.CommandData{Opcode: 0x21} }

func SpecClockModeInquiry() frame.Spec {
	return frame.Spec{Success: []byte{0x31}, Shape: frame.ShapeSized, Width: frame.Width8}
}

func DecodeClockModeInquiry(result frame.Result) []ClockMode {
	modes := make([]ClockMode, len(result.Response.Payload))
	for i, b := range result.Response.Payload {
		modes[i] = ClockMode(b)
	}
	return modes
}

// --- ClockModeSelection (0x11) ---

func EncodeClockModeSelection(mode ClockMode) frame.CommandData {
	return frame.CommandData{Opcode: 0x11, HasSizeField: true, Payload: []byte{byte(mode)}}
}

func SpecClockModeSelection() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0x91}
}

var clockModeSelectionErrors = map[byte]ErrorCode{0x11: ErrChecksum, 0x21: ErrClockMode}

func DecodeClockModeSelection(result frame.Result) error {
	if result.IsError {
		return mapError(result.ErrorCode, clockModeSelectionErrors)
	}
	return nil
}

// --- MultiplicationRatioInquiry (0x22) ---

func EncodeMultiplicationRatioInquiry() frame.CommandData { return frame.CommandData{Opcode: 0x22} }

func SpecMultiplicationRatioInquiry() frame.Spec {
	return frame.Spec{Success: []byte{0x32}, Shape: frame.ShapeSized, Width: frame.Width8}
}

// DecodeMultiplicationRatioInquiry parses a leading clock-type count
// byte, then one ratio set per clock: a length byte followed by that
// many ratio bytes.
func DecodeMultiplicationRatioInquiry(result frame.Result) ([][]MultiplicationRatio, error) {
	data := result.Response.Payload
	if len(data) < 1 {
		return nil, fmt.Errorf("command: multiplication ratio inquiry payload is empty")
	}
	clockCount := int(data[0])
	data = data[1:]
	perClock := make([][]MultiplicationRatio, 0, clockCount)
	for len(data) > 0 {
		n := int(data[0])
		if n > len(data)-1 {
			return nil, fmt.Errorf("command: malformed multiplication ratio entry length %d", n)
		}
		ratios := make([]MultiplicationRatio, n)
		for i, b := range data[1 : 1+n] {
			r, err := DecodeMultiplicationRatio(b)
			if err != nil {
				return nil, err
			}
			ratios[i] = r
		}
		perClock = append(perClock, ratios)
		data = data[1+n:]
	}
	if len(perClock) != clockCount {
		return nil, fmt.Errorf("command: multiplication ratio inquiry declared %d clocks, found %d", clockCount, len(perClock))
	}
	return perClock, nil
}

// --- OperatingFrequencyInquiry (0x23) ---

func EncodeOperatingFrequencyInquiry() frame.CommandData { return frame.CommandData{Opcode: 0x23} }

func SpecOperatingFrequencyInquiry() frame.Spec {
	return frame.Spec{Success: []byte{0x33}, Shape: frame.ShapeSized, Width: frame.Width8}
}

func DecodeOperatingFrequencyInquiry(result frame.Result) ([]FrequencyRange, error) {
	data := result.Response.Payload
	if len(data) < 1 {
		return nil, fmt.Errorf("command: operating frequency inquiry payload is empty")
	}
	clockCount := int(data[0])
	data = data[1:]
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("command: operating frequency payload not a multiple of 4 bytes")
	}
	if len(data)/4 != clockCount {
		return nil, fmt.Errorf("command: operating frequency inquiry declared %d clocks, found %d", clockCount, len(data)/4)
	}
	ranges := make([]FrequencyRange, 0, len(data)/4)
	for i := 0; i < len(data); i += 4 {
		ranges = append(ranges, FrequencyRange{
			Min: binary.BigEndian.Uint16(data[i : i+2]),
			Max: binary.BigEndian.Uint16(data[i+2 : i+4]),
		})
	}
	return ranges, nil
}

// --- UserBootAreaInformationInquiry (0x24) / UserAreaInformationInquiry (0x25) ---

func EncodeUserBootAreaInformationInquiry() frame.CommandData { return frame.CommandData{Opcode: 0x24} }

func SpecUserBootAreaInformationInquiry() frame.Spec {
	return frame.Spec{Success: []byte{0x34}, Shape: frame.ShapeSized, Width: frame.Width8}
}

func EncodeUserAreaInformationInquiry() frame.CommandData { return frame.CommandData{Opcode: 0x25} }

func SpecUserAreaInformationInquiry() frame.Spec {
	return frame.Spec{Success: []byte{0x35}, Shape: frame.ShapeSized, Width: frame.Width8}
}

func decodeAreaRanges(result frame.Result) ([]AreaRange, error) {
	data := result.Response.Payload
	if len(data) < 1 {
		return nil, fmt.Errorf("command: area information payload is empty")
	}
	areaCount := int(data[0])
	data = data[1:]
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("command: area information payload not a multiple of 8 bytes")
	}
	if len(data)/8 != areaCount {
		return nil, fmt.Errorf("command: area information inquiry declared %d areas, found %d", areaCount, len(data)/8)
	}
	ranges := make([]AreaRange, 0, len(data)/8)
	for i := 0; i < len(data); i += 8 {
		ranges = append(ranges, AreaRange{
			Start: binary.BigEndian.Uint32(data[i : i+4]),
			End:   binary.BigEndian.Uint32(data[i+4 : i+8]),
		})
	}
	return ranges, nil
}

func DecodeUserBootAreaInformationInquiry(result frame.Result) ([]AreaRange, error) {
	return decodeAreaRanges(result)
}

func DecodeUserAreaInformationInquiry(result frame.Result) ([]AreaRange, error) {
	return decodeAreaRanges(result)
}

// --- ErasureBlockInformationInquiry (0x26) ---

func EncodeErasureBlockInformationInquiry() frame.CommandData {
	return frame.CommandData{Opcode: 0x26}
}

func SpecErasureBlockInformationInquiry() frame.Spec {
	return frame.Spec{Success: []byte{0x36}, Shape: frame.ShapeSized, Width: frame.Width16}
}

func DecodeErasureBlockInformationInquiry(result frame.Result) ([]AreaRange, error) {
	return decodeAreaRanges(result)
}

// --- ProgrammingSizeInquiry (0x27) ---

func EncodeProgrammingSizeInquiry() frame.CommandData { return frame.CommandData{Opcode: 0x27} }

func SpecProgrammingSizeInquiry() frame.Spec {
	return frame.Spec{Success: []byte{0x37}, Shape: frame.ShapeSized, Width: frame.Width8}
}

func DecodeProgrammingSizeInquiry(result frame.Result) (uint16, error) {
	if len(result.Response.Payload) != 2 {
		return 0, fmt.Errorf("command: programming size payload must be 2 bytes")
	}
	return binary.BigEndian.Uint16(result.Response.Payload), nil
}

// --- NewBitRateSelection (0x3F) ---

func EncodeNewBitRateSelection(bitRate, inputFrequency uint16, ratios []MultiplicationRatio) frame.CommandData {
	payload := make([]byte, 0, 5+len(ratios))
	payload = binary.BigEndian.AppendUint16(payload, bitRate)
	payload = binary.BigEndian.AppendUint16(payload, inputFrequency)
	payload = append(payload, byte(len(ratios)))
	for _, r := range ratios {
		payload = append(payload, r.Encode())
	}
	return frame.CommandData{Opcode: 0x3F, HasSizeField: true, Payload: payload}
}

func SpecNewBitRateSelection() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0xBF}
}

var newBitRateSelectionErrors = map[byte]ErrorCode{
	0x11: ErrChecksum,
	0x24: ErrBitRateSelection,
	0x25: ErrInputFrequency,
	0x26: ErrMultiplicationRatio,
	0x27: ErrOperatingFrequency,
}

func DecodeNewBitRateSelection(result frame.Result) error {
	if result.IsError {
		return mapError(result.ErrorCode, newBitRateSelectionErrors)
	}
	return nil
}

// --- NewBitRateSelectionConfirmation (0x06) ---

func EncodeNewBitRateSelectionConfirmation() frame.CommandData {
	return frame.CommandData{Opcode: 0x06}
}

func SpecNewBitRateSelectionConfirmation() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple}
}

func DecodeNewBitRateSelectionConfirmation(result frame.Result) error { return nil }

// --- ProgrammingErasureStateTransition (0x40) ---

func EncodeProgrammingErasureStateTransition() frame.CommandData {
	return frame.CommandData{Opcode: 0x40}
}

func SpecProgrammingErasureStateTransition() frame.Spec {
	return frame.Spec{Success: []byte{0x26, 0x16}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0xC0}
}

var progEraseStateErrors = map[byte]ErrorCode{0x51: ErrIDCodeMismatch}

func DecodeProgrammingErasureStateTransition(result frame.Result) (IDCodeProtectionStatus, error) {
	if result.IsError {
		return 0, mapError(result.ErrorCode, progEraseStateErrors)
	}
	switch result.Response.FirstByte {
	case 0x26:
		return IDCodeProtectionDisabled, nil
	case 0x16:
		return IDCodeProtectionEnabled, nil
	default:
		return 0, fmt.Errorf("command: unexpected first byte 0x%02x", result.Response.FirstByte)
	}
}

// --- BootProgramStatusInquiry (0x4F) ---

func EncodeBootProgramStatusInquiry() frame.CommandData { return frame.CommandData{Opcode: 0x4F} }

func SpecBootProgramStatusInquiry() frame.Spec {
	return frame.Spec{Success: []byte{0x5F}, Shape: frame.ShapeSized, Width: frame.Width8}
}

func DecodeBootProgramStatusInquiry(result frame.Result) (BootProgramStatus, BootProgramError, error) {
	if len(result.Response.Payload) != 2 {
		return 0, 0, fmt.Errorf("command: boot program status payload must be 2 bytes")
	}
	return BootProgramStatus(result.Response.Payload[0]), BootProgramError(result.Response.Payload[1]), nil
}

// --- UserBootAreaProgrammingSelection (0x42) / UserDataAreaProgrammingSelection (0x43) ---

func EncodeUserBootAreaProgrammingSelection() frame.CommandData {
	return frame.CommandData{Opcode: 0x42}
}

func SpecUserBootAreaProgrammingSelection() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple}
}

func EncodeUserDataAreaProgrammingSelection() frame.CommandData {
	return frame.CommandData{Opcode: 0x43}
}

func SpecUserDataAreaProgrammingSelection() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple}
}

// --- 256-ByteProgramming (0x50) ---

// EndOfProgrammingAddress is the address field value that terminates the
// programming loop.
const EndOfProgrammingAddress uint32 = 0xFFFFFFFF

func EncodeProgramBlock(address uint32, data [256]byte) frame.CommandData {
	payload := make([]byte, 0, 4+256)
	payload = binary.BigEndian.AppendUint32(payload, address)
	payload = append(payload, data[:]...)
	return frame.CommandData{Opcode: 0x50, HasSizeField: true, Payload: payload}
}

func SpecProgramBlock() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0xD0}
}

var programBlockErrors = map[byte]ErrorCode{0x11: ErrChecksum, 0x2A: ErrAddress, 0x53: ErrProgramming}

func DecodeProgramBlock(result frame.Result) error {
	if result.IsError {
		return mapError(result.ErrorCode, programBlockErrors)
	}
	return nil
}

// --- MemoryRead (0x52) ---

func EncodeMemoryRead(area MemoryArea, start, size uint32) frame.CommandData {
	payload := make([]byte, 0, 9)
	payload = append(payload, byte(area))
	payload = binary.BigEndian.AppendUint32(payload, start)
	payload = binary.BigEndian.AppendUint32(payload, size)
	return frame.CommandData{Opcode: 0x52, HasSizeField: true, Payload: payload}
}

func SpecMemoryRead() frame.Spec {
	return frame.Spec{Success: []byte{0x52}, Shape: frame.ShapeSized, Width: frame.Width32, HasError: true, ErrorFirst: 0xD2}
}

var memoryReadErrors = map[byte]ErrorCode{0x11: ErrChecksum, 0x2A: ErrAddress, 0x2B: ErrDataSize}

func DecodeMemoryRead(result frame.Result) ([]byte, error) {
	if result.IsError {
		return nil, mapError(result.ErrorCode, memoryReadErrors)
	}
	return result.Response.Payload, nil
}

// --- ErasureSelection (0x48) ---

func EncodeErasureSelection() frame.CommandData { return frame.CommandData{Opcode: 0x48} }

func SpecErasureSelection() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple}
}

// --- BlockErasure (0x58) ---

func EncodeBlockErasure(block byte) frame.CommandData {
	return frame.CommandData{Opcode: 0x58, HasSizeField: true, Payload: []byte{block}}
}

func SpecBlockErasure() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0xD8}
}

var blockErasureErrors = map[byte]ErrorCode{0x11: ErrChecksum, 0x29: ErrBlockNumber, 0x51: ErrErasure}

func DecodeBlockErasure(result frame.Result) error {
	if result.IsError {
		return mapError(result.ErrorCode, blockErasureErrors)
	}
	return nil
}

// --- UserBootAreaChecksum (0x4A) / UserAreaChecksum (0x4B) ---

func EncodeUserBootAreaChecksum() frame.CommandData { return frame.CommandData{Opcode: 0x4A} }

func SpecUserBootAreaChecksum() frame.Spec {
	return frame.Spec{Success: []byte{0x5A}, Shape: frame.ShapeSized, Width: frame.Width8}
}

func EncodeUserAreaChecksum() frame.CommandData { return frame.CommandData{Opcode: 0x4B} }

func SpecUserAreaChecksum() frame.Spec {
	return frame.Spec{Success: []byte{0x5B}, Shape: frame.ShapeSized, Width: frame.Width8}
}

func decodeChecksum(result frame.Result) (uint32, error) {
	if len(result.Response.Payload) != 4 {
		return 0, fmt.Errorf("command: checksum payload must be 4 bytes")
	}
	return binary.BigEndian.Uint32(result.Response.Payload), nil
}

func DecodeUserBootAreaChecksum(result frame.Result) (uint32, error) { return decodeChecksum(result) }

func DecodeUserAreaChecksum(result frame.Result) (uint32, error) { return decodeChecksum(result) }

// --- UserBootAreaBlankCheck (0x4C) / UserAreaBlankCheck (0x4D) ---

func EncodeUserBootAreaBlankCheck() frame.CommandData { return frame.CommandData{Opcode: 0x4C} }

func SpecUserBootAreaBlankCheck() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0xCC}
}

func EncodeUserAreaBlankCheck() frame.CommandData { return frame.CommandData{Opcode: 0x4D} }

func SpecUserAreaBlankCheck() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0xCD}
}

func decodeBlankCheck(result frame.Result) (ErasureState, error) {
	if result.IsError {
		if result.ErrorCode == 0x52 {
			return NotBlank, nil
		}
		return 0, fmt.Errorf("command: unrecognized blank check error code 0x%02x", result.ErrorCode)
	}
	return Blank, nil
}

func DecodeUserBootAreaBlankCheck(result frame.Result) (ErasureState, error) { return decodeBlankCheck(result) }

func DecodeUserAreaBlankCheck(result frame.Result) (ErasureState, error) { return decodeBlankCheck(result) }

// --- ReadLockBitStatus (0x71) ---

func EncodeReadLockBitStatus(area MemoryArea, block uint32) frame.CommandData {
	payload := lockBitAddressPayload(area, block)
	return frame.CommandData{Opcode: 0x71, HasSizeField: true, Payload: payload}
}

func SpecReadLockBitStatus() frame.Spec {
	return frame.Spec{Success: []byte{0x00, 0x40}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0xF1}
}

var readLockBitStatusErrors = map[byte]ErrorCode{0x11: ErrChecksum, 0x2A: ErrAddress}

func DecodeReadLockBitStatus(result frame.Result) (LockBitStatus, error) {
	if result.IsError {
		return 0, mapError(result.ErrorCode, readLockBitStatusErrors)
	}
	return LockBitStatus(result.Response.FirstByte), nil
}

// --- LockBitProgram (0x77) ---

func EncodeLockBitProgram(area MemoryArea, block uint32) frame.CommandData {
	payload := lockBitAddressPayload(area, block)
	return frame.CommandData{Opcode: 0x77, HasSizeField: true, Payload: payload}
}

func SpecLockBitProgram() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple, HasError: true, ErrorFirst: 0xF7}
}

var lockBitProgramErrors = map[byte]ErrorCode{0x11: ErrChecksum, 0x2A: ErrAddress, 0x53: ErrProgramming}

func DecodeLockBitProgram(result frame.Result) error {
	if result.IsError {
		return mapError(result.ErrorCode, lockBitProgramErrors)
	}
	return nil
}

// lockBitAddressPayload encodes the area byte followed by the block
// address's three high bytes (a31_a24, a23_a16, a15_a8); the low byte is
// implicitly zero since lock bits are block-aligned.
func lockBitAddressPayload(area MemoryArea, block uint32) []byte {
	return []byte{byte(area), byte(block >> 24), byte(block >> 16), byte(block >> 8)}
}

// --- LockBitEnable (0x7A) / LockBitDisable (0x75) ---

func EncodeLockBitEnable() frame.CommandData { return frame.CommandData{Opcode: 0x7A} }

func SpecLockBitEnable() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple}
}

func EncodeLockBitDisable() frame.CommandData { return frame.CommandData{Opcode: 0x75} }

func SpecLockBitDisable() frame.Spec {
	return frame.Spec{Success: []byte{0x06}, Shape: frame.ShapeSimple}
}
