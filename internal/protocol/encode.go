package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reading is the input to Encode for one probe.
type Reading struct {
	Temperature Temperature
	Celsius     float32 // used by V2 instead of Temperature
	Humidity    uint8
}

// Encode builds a frame. It is the inverse of Decode and exists for tests and
// for tooling that replays station traffic.
func Encode(v Version, dev DeviceID, readings []Reading) ([]byte, error) {
	l, ok := layouts[v]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	if len(readings) > math.MaxUint8 {
		return nil, fmt.Errorf("too many probes: %d", len(readings))
	}

	buf := make([]byte, HeaderLen, HeaderLen+len(readings)*l.size)
	buf[0] = Magic
	buf[offVersion] = byte(v)
	copy(buf[offDevice:], dev[:])
	buf[offProbes] = byte(len(readings))

	for _, r := range readings {
		switch v {
		case V1:
			if r.Temperature.Whole < 0 || r.Temperature.Whole > math.MaxUint8 {
				return nil, fmt.Errorf("v1 whole degrees out of range: %d", r.Temperature.Whole)
			}
			buf = append(buf, byte(r.Temperature.Whole), byte(r.Temperature.Hundredths), r.Humidity)
		case V2:
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(r.Celsius))
			buf = append(buf, r.Humidity)
		}
	}
	return buf, nil
}
