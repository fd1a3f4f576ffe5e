package session

import (
	"fmt"
	"log"

	"rxprog.dev/command"
	"rxprog.dev/transport"
)

// Connected is the phase after a successful Connect, before a device has
// been selected. Read-only inquiries that don't depend on device choice
// are also available here.
type Connected struct {
	target transport.Target
	logger *log.Logger
}

// SupportedDevices lists the devices the target's boot firmware accepts.
func (c *Connected) SupportedDevices() ([]command.SupportedDevice, error) {
	if err := send(c.target, command.EncodeSupportedDeviceInquiry()); err != nil {
		return nil, err
	}
	result, err := receive(c.target, command.SpecSupportedDeviceInquiry())
	if err != nil {
		return nil, err
	}
	return command.DecodeSupportedDeviceInquiry(result)
}

// SelectDevice selects deviceCode and transitions to DeviceSelected.
func (c *Connected) SelectDevice(deviceCode string) (*DeviceSelected, error) {
	if err := send(c.target, command.EncodeDeviceSelection(deviceCode)); err != nil {
		return nil, err
	}
	result, err := receive(c.target, command.SpecDeviceSelection())
	if err != nil {
		return nil, err
	}
	if err := command.DecodeDeviceSelection(result); err != nil {
		return nil, err
	}
	logf(c.logger, "selected device %s", deviceCode)
	next := &DeviceSelected{target: c.target, logger: c.logger}
	c.target = nil
	return next, nil
}

// DeviceSelected is the phase after a device has been chosen, before a
// clock mode has been selected.
type DeviceSelected struct {
	target transport.Target
	logger *log.Logger
}

// ClockModes lists the clock modes the selected device supports.
func (d *DeviceSelected) ClockModes() ([]command.ClockMode, error) {
	if err := send(d.target, command.EncodeClockModeInquiry()); err != nil {
		return nil, err
	}
	result, err := receive(d.target, command.SpecClockModeInquiry())
	if err != nil {
		return nil, err
	}
	return command.DecodeClockModeInquiry(result), nil
}

// SelectClockMode selects mode and transitions to ClockModeSelected.
func (d *DeviceSelected) SelectClockMode(mode command.ClockMode) (*ClockModeSelected, error) {
	if err := send(d.target, command.EncodeClockModeSelection(mode)); err != nil {
		return nil, err
	}
	result, err := receive(d.target, command.SpecClockModeSelection())
	if err != nil {
		return nil, err
	}
	if err := command.DecodeClockModeSelection(result); err != nil {
		return nil, err
	}
	logf(d.logger, "selected clock mode %v", mode)
	next := &ClockModeSelected{target: d.target, logger: d.logger}
	d.target = nil
	return next, nil
}

// ClockModeSelected is the phase after a clock mode has been chosen,
// before a bit rate has been negotiated.
type ClockModeSelected struct {
	target transport.Target
	logger *log.Logger
}

func (c *ClockModeSelected) MultiplicationRatios() ([][]command.MultiplicationRatio, error) {
	if err := send(c.target, command.EncodeMultiplicationRatioInquiry()); err != nil {
		return nil, err
	}
	result, err := receive(c.target, command.SpecMultiplicationRatioInquiry())
	if err != nil {
		return nil, err
	}
	return command.DecodeMultiplicationRatioInquiry(result)
}

func (c *ClockModeSelected) OperatingFrequencies() ([]command.FrequencyRange, error) {
	if err := send(c.target, command.EncodeOperatingFrequencyInquiry()); err != nil {
		return nil, err
	}
	result, err := receive(c.target, command.SpecOperatingFrequencyInquiry())
	if err != nil {
		return nil, err
	}
	return command.DecodeOperatingFrequencyInquiry(result)
}

func (c *ClockModeSelected) UserBootArea() ([]command.AreaRange, error) {
	if err := send(c.target, command.EncodeUserBootAreaInformationInquiry()); err != nil {
		return nil, err
	}
	result, err := receive(c.target, command.SpecUserBootAreaInformationInquiry())
	if err != nil {
		return nil, err
	}
	return command.DecodeUserBootAreaInformationInquiry(result)
}

func (c *ClockModeSelected) UserArea() ([]command.AreaRange, error) {
	if err := send(c.target, command.EncodeUserAreaInformationInquiry()); err != nil {
		return nil, err
	}
	result, err := receive(c.target, command.SpecUserAreaInformationInquiry())
	if err != nil {
		return nil, err
	}
	return command.DecodeUserAreaInformationInquiry(result)
}

func (c *ClockModeSelected) ErasureBlocks() ([]command.AreaRange, error) {
	if err := send(c.target, command.EncodeErasureBlockInformationInquiry()); err != nil {
		return nil, err
	}
	result, err := receive(c.target, command.SpecErasureBlockInformationInquiry())
	if err != nil {
		return nil, err
	}
	return command.DecodeErasureBlockInformationInquiry(result)
}

func (c *ClockModeSelected) ProgrammingSize() (uint16, error) {
	if err := send(c.target, command.EncodeProgrammingSizeInquiry()); err != nil {
		return 0, err
	}
	result, err := receive(c.target, command.SpecProgrammingSizeInquiry())
	if err != nil {
		return 0, err
	}
	return command.DecodeProgrammingSizeInquiry(result)
}

// SetNewBitRate negotiates bitRate (bps/100) and inputFrequency
// (MHz*100) with the given multiplication ratios. The host must change
// its local baud rate between the negotiation ack and the confirmation
// round-trip; this method performs that lockstep switch internally.
func (c *ClockModeSelected) SetNewBitRate(bitRate, inputFrequency uint16, ratios []command.MultiplicationRatio) (*BitRateSelected, error) {
	if err := send(c.target, command.EncodeNewBitRateSelection(bitRate, inputFrequency, ratios)); err != nil {
		return nil, err
	}
	result, err := receive(c.target, command.SpecNewBitRateSelection())
	if err != nil {
		return nil, err
	}
	if err := command.DecodeNewBitRateSelection(result); err != nil {
		return nil, err
	}

	newBaud := uint32(bitRate) * 100
	if err := c.target.SetBaudRate(newBaud); err != nil {
		return nil, fmt.Errorf("session: switch local baud rate to %d: %w", newBaud, err)
	}
	logf(c.logger, "switched local baud rate to %d", newBaud)

	if err := send(c.target, command.EncodeNewBitRateSelectionConfirmation()); err != nil {
		return nil, fmt.Errorf("session: bit rate confirmation: %w", err)
	}
	confirm, err := receive(c.target, command.SpecNewBitRateSelectionConfirmation())
	if err != nil {
		return nil, fmt.Errorf("session: bit rate confirmation: %w", err)
	}
	if confirm.Response.FirstByte != 0x06 {
		return nil, fmt.Errorf("session: bit rate confirmation: unexpected response byte 0x%02x", confirm.Response.FirstByte)
	}

	next := &BitRateSelected{target: c.target, logger: c.logger}
	c.target = nil
	return next, nil
}

// BitRateSelected is the phase after bit-rate negotiation, before the
// device has entered the programming/erasure command wait.
type BitRateSelected struct {
	target transport.Target
	logger *log.Logger
}

// EnterProgrammingErasure transitions to ProgErase. Returns
// ErrIDCodeProtected if the device reports ID-code protection enabled;
// that flow is unsupported.
func (b *BitRateSelected) EnterProgrammingErasure() (*ProgErase, error) {
	if err := send(b.target, command.EncodeProgrammingErasureStateTransition()); err != nil {
		return nil, err
	}
	result, err := receive(b.target, command.SpecProgrammingErasureStateTransition())
	if err != nil {
		return nil, err
	}
	status, err := command.DecodeProgrammingErasureStateTransition(result)
	if err != nil {
		return nil, err
	}
	if status == command.IDCodeProtectionEnabled {
		return nil, ErrIDCodeProtected
	}
	logf(b.logger, "entered programming/erasure command wait")
	next := &ProgErase{target: b.target, logger: b.logger}
	b.target = nil
	return next, nil
}

// ProgErase is the programming/erasure command wait: memory can be read
// and erased, checksums and blank checks run, lock bits inspected and
// programmed, and either user area can be selected for data programming.
type ProgErase struct {
	target transport.Target
	logger *log.Logger
}

func (p *ProgErase) ReadMemory(area command.MemoryArea, start, size uint32) ([]byte, error) {
	if err := send(p.target, command.EncodeMemoryRead(area, start, size)); err != nil {
		return nil, err
	}
	result, err := receive(p.target, command.SpecMemoryRead())
	if err != nil {
		return nil, err
	}
	return command.DecodeMemoryRead(result)
}

func (p *ProgErase) BootProgramStatus() (command.BootProgramStatus, command.BootProgramError, error) {
	if err := send(p.target, command.EncodeBootProgramStatusInquiry()); err != nil {
		return 0, 0, err
	}
	result, err := receive(p.target, command.SpecBootProgramStatusInquiry())
	if err != nil {
		return 0, 0, err
	}
	return command.DecodeBootProgramStatusInquiry(result)
}

func (p *ProgErase) SelectErasure() error {
	if err := send(p.target, command.EncodeErasureSelection()); err != nil {
		return err
	}
	_, err := receive(p.target, command.SpecErasureSelection())
	return err
}

func (p *ProgErase) EraseBlock(block byte) error {
	if err := send(p.target, command.EncodeBlockErasure(block)); err != nil {
		return err
	}
	result, err := receive(p.target, command.SpecBlockErasure())
	if err != nil {
		return err
	}
	return command.DecodeBlockErasure(result)
}

func (p *ProgErase) UserBootAreaChecksum() (uint32, error) {
	if err := send(p.target, command.EncodeUserBootAreaChecksum()); err != nil {
		return 0, err
	}
	result, err := receive(p.target, command.SpecUserBootAreaChecksum())
	if err != nil {
		return 0, err
	}
	return command.DecodeUserBootAreaChecksum(result)
}

func (p *ProgErase) UserAreaChecksum() (uint32, error) {
	if err := send(p.target, command.EncodeUserAreaChecksum()); err != nil {
		return 0, err
	}
	result, err := receive(p.target, command.SpecUserAreaChecksum())
	if err != nil {
		return 0, err
	}
	return command.DecodeUserAreaChecksum(result)
}

func (p *ProgErase) UserBootAreaBlankCheck() (command.ErasureState, error) {
	if err := send(p.target, command.EncodeUserBootAreaBlankCheck()); err != nil {
		return 0, err
	}
	result, err := receive(p.target, command.SpecUserBootAreaBlankCheck())
	if err != nil {
		return 0, err
	}
	return command.DecodeUserBootAreaBlankCheck(result)
}

func (p *ProgErase) UserAreaBlankCheck() (command.ErasureState, error) {
	if err := send(p.target, command.EncodeUserAreaBlankCheck()); err != nil {
		return 0, err
	}
	result, err := receive(p.target, command.SpecUserAreaBlankCheck())
	if err != nil {
		return 0, err
	}
	return command.DecodeUserAreaBlankCheck(result)
}

func (p *ProgErase) ReadLockBitStatus(area command.MemoryArea, block uint32) (command.LockBitStatus, error) {
	if err := send(p.target, command.EncodeReadLockBitStatus(area, block)); err != nil {
		return 0, err
	}
	result, err := receive(p.target, command.SpecReadLockBitStatus())
	if err != nil {
		return 0, err
	}
	return command.DecodeReadLockBitStatus(result)
}

func (p *ProgErase) ProgramLockBit(area command.MemoryArea, block uint32) error {
	if err := send(p.target, command.EncodeLockBitProgram(area, block)); err != nil {
		return err
	}
	result, err := receive(p.target, command.SpecLockBitProgram())
	if err != nil {
		return err
	}
	return command.DecodeLockBitProgram(result)
}

func (p *ProgErase) EnableLockBit() error {
	if err := send(p.target, command.EncodeLockBitEnable()); err != nil {
		return err
	}
	_, err := receive(p.target, command.SpecLockBitEnable())
	return err
}

func (p *ProgErase) DisableLockBit() error {
	if err := send(p.target, command.EncodeLockBitDisable()); err != nil {
		return err
	}
	_, err := receive(p.target, command.SpecLockBitDisable())
	return err
}

// ProgramUserBootArea selects the user boot area for 256-byte
// programming and transitions to WaitingForData.
func (p *ProgErase) ProgramUserBootArea() (*WaitingForData, error) {
	if err := send(p.target, command.EncodeUserBootAreaProgrammingSelection()); err != nil {
		return nil, err
	}
	if _, err := receive(p.target, command.SpecUserBootAreaProgrammingSelection()); err != nil {
		return nil, err
	}
	next := &WaitingForData{target: p.target, logger: p.logger}
	p.target = nil
	return next, nil
}

// ProgramUserArea selects the user area for 256-byte programming and
// transitions to WaitingForData.
func (p *ProgErase) ProgramUserArea() (*WaitingForData, error) {
	if err := send(p.target, command.EncodeUserDataAreaProgrammingSelection()); err != nil {
		return nil, err
	}
	if _, err := receive(p.target, command.SpecUserDataAreaProgrammingSelection()); err != nil {
		return nil, err
	}
	next := &WaitingForData{target: p.target, logger: p.logger}
	p.target = nil
	return next, nil
}

// WaitingForData is the programming loop: blocks are programmed one at
// a time until the end marker ends the loop and returns to ProgErase.
type WaitingForData struct {
	target transport.Target
	logger *log.Logger
}

// ProgramBlock writes one 256-byte programming block at address and
// stays in WaitingForData.
func (w *WaitingForData) ProgramBlock(address uint32, data [256]byte) error {
	if err := send(w.target, command.EncodeProgramBlock(address, data)); err != nil {
		return err
	}
	result, err := receive(w.target, command.SpecProgramBlock())
	if err != nil {
		return err
	}
	return command.DecodeProgramBlock(result)
}

// End sends the end-of-programming marker block and transitions back
// to ProgErase.
func (w *WaitingForData) End() (*ProgErase, error) {
	var marker [256]byte
	if err := w.ProgramBlock(command.EndOfProgrammingAddress, marker); err != nil {
		return nil, fmt.Errorf("session: end of programming: %w", err)
	}
	logf(w.logger, "programming loop ended")
	next := &ProgErase{target: w.target, logger: w.logger}
	w.target = nil
	return next, nil
}
