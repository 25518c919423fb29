package protocol

import (
	"fmt"
	"slices"
)

// Validator gates frames on magic, accepted versions and an optional device
// filter. The zero value accepts DefaultVersions from any device.
type Validator struct {
	Versions []Version
	Filter   *DeviceID
}

// Validate checks the fixed header of frame. Rejections wrap ErrProtocol,
// except the device filter which returns ErrFilteredDevice.
func (v Validator) Validate(frame []byte) (Header, error) {
	if len(frame) == 0 {
		return Header{}, fmt.Errorf("%w: empty datagram", ErrTruncated)
	}
	if frame[0] != Magic {
		return Header{}, fmt.Errorf("%w: got %d", ErrBadMagic, frame[0])
	}
	if len(frame) < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(frame), HeaderLen)
	}

	versions := v.Versions
	if len(versions) == 0 {
		versions = DefaultVersions
	}
	ver := Version(frame[offVersion])
	if !slices.Contains(versions, ver) || !ver.Known() {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, ver)
	}

	var dev DeviceID
	copy(dev[:], frame[offDevice:offDevice+len(dev)])
	if v.Filter != nil && dev != *v.Filter {
		return Header{}, fmt.Errorf("%w: %s", ErrFilteredDevice, dev)
	}

	return Header{
		Version: ver,
		Device:  dev,
		Probes:  int(frame[offProbes]),
	}, nil
}
