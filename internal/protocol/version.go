package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Version selects the per-probe record layout.
type Version uint8

const (
	V1 Version = 1 // fixed point, 3 bytes per probe
	V2 Version = 2 // float32, 5 bytes per probe
)

// DefaultVersions is the accepted set when none is configured.
var DefaultVersions = []Version{V1, V2}

type layout struct {
	size   int
	decode func(rec []byte) (Temperature, uint8)
}

var layouts = map[Version]layout{
	V1: {size: 3, decode: decodeFixed},
	V2: {size: 5, decode: decodeFloat},
}

// Known reports whether v has a record layout.
func (v Version) Known() bool {
	_, ok := layouts[v]
	return ok
}

// RecordSize is the per-probe record length, 0 for unknown versions.
func (v Version) RecordSize() int {
	return layouts[v].size
}

// ParseVersions parses a comma separated list such as "1,2".
func ParseVersions(s string) ([]Version, error) {
	var out []Version
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid protocol version %q: %w", part, err)
		}
		v := Version(n)
		if !v.Known() {
			return nil, fmt.Errorf("protocol version %d has no known record layout", n)
		}
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no protocol versions in %q", s)
	}
	return out, nil
}

func decodeFixed(rec []byte) (Temperature, uint8) {
	return Temperature{Whole: int(rec[0]), Hundredths: int(rec[1])}, rec[2]
}

func decodeFloat(rec []byte) (Temperature, uint8) {
	f := math.Float32frombits(binary.LittleEndian.Uint32(rec[0:4]))
	return SplitCelsius(float64(f)), rec[4]
}

// SplitCelsius decomposes v into floor(v) and the remaining hundredths,
// rounded half away from zero. A remainder that rounds to 100 carries into
// Whole. NaN, infinities and out-of-range values map to the invalid sentinel.
func SplitCelsius(v float64) Temperature {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Temperature{Whole: 255}
	}
	whole := math.Floor(v)
	if whole >= TemperatureInvalid || whole < math.MinInt32 {
		return Temperature{Whole: 255}
	}
	hundredths := int(math.Round((v - whole) * 100))
	w := int(whole)
	if hundredths >= 100 {
		w++
		hundredths = 0
	}
	return Temperature{Whole: w, Hundredths: hundredths}
}
