// Package connstring parses the CLI's "key=value;key=value" connection
// string into the discovery/programming parameters recognized by
// rxprog's command-line tool.
package connstring

import (
	"fmt"
	"strconv"
	"strings"

	"rxprog.dev/command"
)

const (
	pairDelimiter = ";"
	kvDelimiter   = "="
)

// Raw is the parsed, not-yet-typed key/value set: every recognized and
// unrecognized key is retained verbatim, grounded on the original
// implementation's plain string map before field extraction.
type Raw struct {
	data map[string]string
}

// Parse splits s on ';' into "key=value" pairs. Empty pairs (from
// "a=b;;c=d") are skipped; a pair without exactly one '=' or with an
// empty key is an error, as is a duplicate key.
func Parse(s string) (Raw, error) {
	data := make(map[string]string)
	for _, pair := range strings.Split(s, pairDelimiter) {
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, kvDelimiter)
		switch len(parts) {
		case 1:
			return Raw{}, fmt.Errorf("connstring: no key/value delimiter in %q", pair)
		case 2:
			key, value := parts[0], parts[1]
			if key == "" {
				return Raw{}, fmt.Errorf("connstring: empty key in %q", pair)
			}
			if _, exists := data[key]; exists {
				return Raw{}, fmt.Errorf("connstring: duplicate key %q", key)
			}
			data[key] = value
		default:
			return Raw{}, fmt.Errorf("connstring: more than one key/value delimiter in %q", pair)
		}
	}
	return Raw{data: data}, nil
}

// Get returns the raw value for key and whether it was present.
func (r Raw) Get(key string) (string, bool) {
	v, ok := r.data[key]
	return v, ok
}

// Recognized keys.
const (
	KeyPort           = "p"
	KeyDeviceCode     = "d"
	KeyClockMode      = "cm"
	KeyInputFrequency = "if"
	KeyRatios         = "mr"
	KeyBitRate        = "br"
)

// Params is the typed, validated form of a connection string.
type Params struct {
	Port           string
	HasPort        bool
	DeviceCode     string
	HasDeviceCode  bool
	ClockMode      command.ClockMode
	HasClockMode   bool
	InputFrequency uint16
	HasInputFreq   bool
	Ratios         []command.MultiplicationRatio
	HasRatios      bool
	BitRate        uint16
	HasBitRate     bool
}

// ParseParams parses s and extracts the recognized, typed fields. A key
// present but malformed (non-numeric, a ratio without a leading 'x' or
// '/') is an error; a missing key simply leaves the corresponding Has*
// flag false, driving discovery instead of the program+verify workflow.
func ParseParams(s string) (Params, error) {
	raw, err := Parse(s)
	if err != nil {
		return Params{}, err
	}

	var p Params
	if v, ok := raw.Get(KeyPort); ok {
		p.Port, p.HasPort = v, true
	}
	if v, ok := raw.Get(KeyDeviceCode); ok {
		p.DeviceCode, p.HasDeviceCode = v, true
	}
	if v, ok := raw.Get(KeyClockMode); ok {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return Params{}, fmt.Errorf("connstring: clock mode %q: %w", v, err)
		}
		p.ClockMode, p.HasClockMode = command.ClockMode(n), true
	}
	if v, ok := raw.Get(KeyInputFrequency); ok {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return Params{}, fmt.Errorf("connstring: input frequency %q: %w", v, err)
		}
		p.InputFrequency, p.HasInputFreq = uint16(n), true
	}
	if v, ok := raw.Get(KeyRatios); ok {
		ratios, err := parseRatios(v)
		if err != nil {
			return Params{}, err
		}
		p.Ratios, p.HasRatios = ratios, true
	}
	if v, ok := raw.Get(KeyBitRate); ok {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return Params{}, fmt.Errorf("connstring: bit rate %q: %w", v, err)
		}
		p.BitRate, p.HasBitRate = uint16(n), true
	}
	return p, nil
}

func parseRatios(s string) ([]command.MultiplicationRatio, error) {
	parts := strings.Split(s, ",")
	ratios := make([]command.MultiplicationRatio, 0, len(parts))
	for _, part := range parts {
		if len(part) < 2 {
			return nil, fmt.Errorf("connstring: malformed multiplication ratio %q", part)
		}
		n, err := strconv.Atoi(part[1:])
		if err != nil {
			return nil, fmt.Errorf("connstring: malformed multiplication ratio %q: %w", part, err)
		}
		switch part[0] {
		case 'x':
			ratios = append(ratios, command.MultiplyBy(n))
		case '/':
			ratios = append(ratios, command.DivideBy(n))
		default:
			return nil, fmt.Errorf("connstring: multiplication ratio %q must start with 'x' or '/'", part)
		}
	}
	return ratios, nil
}
