package protocol

import (
	"fmt"
	"iter"
)

// Decode returns the probe measurements of a validated frame in index order.
// The frame length is checked against the declared probe count up front, so
// a truncated frame yields nothing at all.
func Decode(frame []byte, h Header) (iter.Seq[Measurement], error) {
	l, ok := layouts[h.Version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	need := HeaderLen + h.Probes*l.size
	if len(frame) < need {
		return nil, fmt.Errorf("%w: %d bytes, %d probes need %d", ErrTruncated, len(frame), h.Probes, need)
	}

	return func(yield func(Measurement) bool) {
		for i := 0; i < h.Probes; i++ {
			off := HeaderLen + i*l.size
			temp, hum := l.decode(frame[off : off+l.size])
			m := Measurement{
				Device:      h.Device,
				Probe:       i,
				Temperature: temp,
				Humidity:    hum,
			}
			if !yield(m) {
				return
			}
		}
	}, nil
}

// Parse validates and decodes frame in one step.
func (v Validator) Parse(frame []byte) (Header, iter.Seq[Measurement], error) {
	h, err := v.Validate(frame)
	if err != nil {
		return Header{}, nil, err
	}
	seq, err := Decode(frame, h)
	if err != nil {
		return h, nil, err
	}
	return h, seq, nil
}
