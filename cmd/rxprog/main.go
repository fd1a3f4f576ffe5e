// Command rxprog is a command-line Renesas RX boot-mode programmer: it
// connects to a target over a serial port, negotiates a communication
// speed, and programs/verifies on-chip flash from a host-supplied image.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"rxprog.dev/command"
	"rxprog.dev/connstring"
	"rxprog.dev/image"
	"rxprog.dev/session"
	"rxprog.dev/transport"
)

var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{Level: charmlog.InfoLevel})

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "list-ports":
			return runListPorts()
		}
	}

	flags := pflag.NewFlagSet("rxprog", pflag.ContinueOnError)
	imageType := flags.StringP("image-type", "T", "", "the type of the image file (ihex|srec)")
	showChecksums := flags.BoolP("show-checksums", "c", false, "print user boot/user area checksums after programming")
	if err := flags.Parse(args); err != nil {
		return err
	}

	positional := flags.Args()
	var connStr, imagePath string
	if len(positional) > 0 {
		connStr = positional[0]
	}
	if len(positional) > 1 {
		imagePath = positional[1]
	}

	params, err := connstring.ParseParams(connStr)
	if err != nil {
		return fmt.Errorf("could not parse connection string: %w", err)
	}

	if !params.HasPort {
		fmt.Println("No port specified in connection string. Listing available serial ports:")
		if err := runListPorts(); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Hint: select a port with p=<port name>")
		return nil
	}

	logger.Info("connecting to target", "port", params.Port)
	resetter := transport.NewPromptResetter(os.Stdout, os.Stdin)
	target, err := transport.OpenSerialTarget(params.Port, 9600, resetter)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", params.Port, err)
	}

	connected, err := session.Connect(target, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	logger.Info("initial connection succeeded")

	if !params.HasDeviceCode {
		fmt.Println()
		fmt.Println("No device specified in connection string. Querying target for supported devices:")
		if err := listDevices(connected); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Hint: select a device with d=<device code>")
		return nil
	}

	deviceSelected, err := connected.SelectDevice(params.DeviceCode)
	if err != nil {
		return fmt.Errorf("select device %s: %w", params.DeviceCode, err)
	}

	if !params.HasClockMode {
		fmt.Println()
		fmt.Println("No clock mode specified in connection string. Querying target for supported clock modes:")
		if err := listClockModes(deviceSelected); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Hint: select a clock mode with cm=<clock mode>")
		return nil
	}

	clockModeSelected, err := deviceSelected.SelectClockMode(params.ClockMode)
	if err != nil {
		return fmt.Errorf("select clock mode %d: %w", params.ClockMode, err)
	}

	// Queried before SetNewBitRate below, since that transition retires
	// clockModeSelected (sets its target to nil).
	var userArea []command.AreaRange
	if imagePath != "" {
		userArea, err = clockModeSelected.UserArea()
		if err != nil {
			return fmt.Errorf("query user area ranges: %w", err)
		}
	}

	if !params.HasBitRate || !params.HasInputFreq || !params.HasRatios {
		fmt.Println()
		fmt.Println("No input frequency, multiplication ratio and/or bit rate specified. Querying target:")
		if err := listMultiplicationRatios(clockModeSelected); err != nil {
			return err
		}
		if err := listOperatingFrequencies(clockModeSelected); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Hint: select an input frequency, multiplication ratio and bit rate with if=<input frequency>;mr=<ratio1>,<ratio2>,...;br=<bit rate>")
		return nil
	}

	bitRateSelected, err := clockModeSelected.SetNewBitRate(params.BitRate, params.InputFrequency, params.Ratios)
	if err != nil {
		return fmt.Errorf("set new bit rate: %w", err)
	}

	if imagePath == "" {
		fmt.Println()
		fmt.Println("Hint: specify an image to program the device")
		fmt.Println("Nothing to do")
		return nil
	}

	parser, err := resolveImageParser(*imageType, imagePath)
	if err != nil {
		return err
	}

	progErase, err := bitRateSelected.EnterProgrammingErasure()
	if err != nil {
		return fmt.Errorf("enter programming/erasure: %w", err)
	}
	logger.Info("transitioned to programming/erasure state")

	img := image.New(toImageRanges(userArea))
	if err := parser(imagePath, img.AddData); err != nil {
		return fmt.Errorf("parse image: %w", err)
	}

	waitingForData, err := progErase.ProgramUserArea()
	if err != nil {
		return fmt.Errorf("select user area for programming: %w", err)
	}
	logger.Info("programming")
	for _, block := range img.ProgrammableBlocks(256) {
		var data [256]byte
		copy(data[:], block.Data)
		if err := waitingForData.ProgramBlock(block.StartAddress, data); err != nil {
			return fmt.Errorf("program block at 0x%X: %w", block.StartAddress, err)
		}
	}
	progErase, err = waitingForData.End()
	if err != nil {
		return fmt.Errorf("end programming: %w", err)
	}
	logger.Info("programming complete")

	logger.Info("verifying")
	verifyFailed := false
	for _, block := range img.ProgrammableBlocks(256) {
		got, err := progErase.ReadMemory(command.UserArea, block.StartAddress, uint32(len(block.Data)))
		if err != nil {
			return fmt.Errorf("verify block at 0x%X: %w", block.StartAddress, err)
		}
		if string(got) != string(block.Data) {
			verifyFailed = true
			logger.Warn("verify mismatch", "address", fmt.Sprintf("0x%X", block.StartAddress), "size", len(block.Data))
		}
	}
	if verifyFailed {
		logger.Warn("verification failed")
	} else {
		logger.Info("verification complete")
	}

	if *showChecksums {
		uba, err := progErase.UserBootAreaChecksum()
		if err != nil {
			return fmt.Errorf("user boot area checksum: %w", err)
		}
		ua, err := progErase.UserAreaChecksum()
		if err != nil {
			return fmt.Errorf("user area checksum: %w", err)
		}
		fmt.Println()
		fmt.Printf("User boot area checksum: 0x%08X\n", uba)
		fmt.Printf("User area checksum: 0x%08X\n", ua)
	}

	return nil
}

func toImageRanges(areas []command.AreaRange) []image.AddressRange {
	ranges := make([]image.AddressRange, len(areas))
	for i, a := range areas {
		ranges[i] = image.AddressRange{Lo: a.Start, Hi: a.End}
	}
	return ranges
}

// imageParser reads the image file at path and reports every data
// record to add. Intel HEX and S-record parsing are external
// collaborators, out of scope for the core; only this interface is
// specified.
type imageParser func(path string, add func(address uint32, data []byte) error) error

func resolveImageParser(explicit, path string) (imageParser, error) {
	kind := explicit
	if kind == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".hex", ".ihex", ".ihx":
			kind = "ihex"
		case ".srec", ".mot":
			kind = "srec"
		default:
			return nil, fmt.Errorf("could not determine image type (hint: specify explicitly with -T)")
		}
		fmt.Printf("Detected %s image from extension\n", kind)
	}
	switch kind {
	case "ihex":
		return parseIHex, nil
	case "srec":
		return parseSRec, nil
	default:
		return nil, fmt.Errorf("unknown image type %q", kind)
	}
}

func parseIHex(path string, add func(address uint32, data []byte) error) error {
	return fmt.Errorf("ihex parsing is an external collaborator, not implemented by this core")
}

func parseSRec(path string, add func(address uint32, data []byte) error) error {
	return fmt.Errorf("srec parsing is an external collaborator, not implemented by this core")
}

func runListPorts() error {
	ports, err := listSerialPorts()
	if err != nil {
		return fmt.Errorf("could not retrieve list of available ports: %w", err)
	}
	rows := make([][]string, len(ports))
	for i, p := range ports {
		rows[i] = []string{p}
	}
	printTable([]string{"Port name"}, rows)
	return nil
}

func listSerialPorts() ([]string, error) {
	patterns := []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/cu.*", "/dev/tty.usb*"}
	var ports []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		ports = append(ports, matches...)
	}
	return ports, nil
}

func listDevices(c *session.Connected) error {
	devices, err := c.SupportedDevices()
	if err != nil {
		return err
	}
	rows := make([][]string, len(devices))
	for i, d := range devices {
		rows[i] = []string{d.DeviceCode, d.SeriesName}
	}
	printTable([]string{"Device code", "Series name"}, rows)
	return nil
}

func listClockModes(d *session.DeviceSelected) error {
	modes, err := d.ClockModes()
	if err != nil {
		return err
	}
	rows := make([][]string, len(modes))
	for i, m := range modes {
		rows[i] = []string{fmt.Sprintf("%d", m)}
	}
	printTable([]string{"Clock mode"}, rows)
	return nil
}

func listMultiplicationRatios(c *session.ClockModeSelected) error {
	perClock, err := c.MultiplicationRatios()
	if err != nil {
		return err
	}
	rows := make([][]string, len(perClock))
	for clock, ratios := range perClock {
		strs := make([]string, len(ratios))
		for i, r := range ratios {
			strs[i] = r.String()
		}
		rows[clock] = []string{fmt.Sprintf("%d", clock), strings.Join(strs, ", ")}
	}
	printTable([]string{"Clock", "Multiplication ratios"}, rows)
	return nil
}

func listOperatingFrequencies(c *session.ClockModeSelected) error {
	freqs, err := c.OperatingFrequencies()
	if err != nil {
		return err
	}
	rows := make([][]string, len(freqs))
	for clock, f := range freqs {
		rows[clock] = []string{fmt.Sprintf("%d", clock), fmt.Sprintf("%d", f.Min), fmt.Sprintf("%d", f.Max)}
	}
	printTable([]string{"Clock", "Minimum frequency", "Maximum frequency"}, rows)
	return nil
}
