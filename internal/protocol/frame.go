// Package protocol decodes WeatherDuino sensor-report datagrams.
//
// Frame layout: magic 101, version, device id (3 bytes), probe count N, then
// N probe records. Version 1 records are 3 bytes (whole degrees, hundredths,
// humidity); version 2 records are 5 bytes (little-endian float32 degrees,
// humidity).
package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	Magic      = 101
	HeaderLen  = 6
	offVersion = 1
	offDevice  = 2
	offProbes  = 5
)

var (
	ErrProtocol           = errors.New("protocol error")
	ErrBadMagic           = fmt.Errorf("%w: bad magic", ErrProtocol)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrProtocol)
	ErrTruncated          = fmt.Errorf("%w: truncated frame", ErrProtocol)

	// ErrFilteredDevice is a policy rejection, not a decode failure.
	ErrFilteredDevice = errors.New("device filtered")
)

// DeviceID is the 3-byte identity a station puts in every frame.
type DeviceID [3]byte

// String renders the id as colon-separated hex, e.g. "01:02:03".
func (d DeviceID) String() string {
	return fmt.Sprintf("%02x:%02x:%02x", d[0], d[1], d[2])
}

// Hex renders the id as six hex digits, e.g. "010203". Used where ':' is not
// allowed (metric paths, topics, keys).
func (d DeviceID) Hex() string {
	return hex.EncodeToString(d[:])
}

// ParseDeviceID accepts "01:02:03" or "010203".
func ParseDeviceID(s string) (DeviceID, error) {
	var d DeviceID
	raw := strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	if len(raw) != 2*len(d) {
		return d, fmt.Errorf("invalid device id %q: want 3 hex bytes", s)
	}
	if _, err := hex.Decode(d[:], []byte(raw)); err != nil {
		return d, fmt.Errorf("invalid device id %q: %w", s, err)
	}
	return d, nil
}

// Header is the validated fixed part of a frame.
type Header struct {
	Version Version
	Device  DeviceID
	Probes  int
}
