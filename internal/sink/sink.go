// Package sink holds the outputs a decoded measurement can be dispatched to.
// Every sink is used from a single goroutine and owns its resource (file,
// socket, database handle, broker client) until Close.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

// Sink consumes one measurement at a time.
type Sink interface {
	Name() string
	Accept(ctx context.Context, m protocol.Measurement) error
	Close() error
}

// Error is returned by Accept when the output medium fails.
type Error struct {
	Sink string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Sink: name, Err: err}
}

// readingText renders the valid fields of m, e.g. ["temp: 20.50c", "humidity: 60%"].
func readingText(m protocol.Measurement, sep string) []string {
	var out []string
	if m.Temperature.Valid() {
		out = append(out, "temp"+sep+m.Temperature.String()+"c")
	}
	if m.HumidityValid() {
		out = append(out, fmt.Sprintf("humidity%s%d%%", sep, m.Humidity))
	}
	return out
}

// metricName makes a probe name safe as one segment of a dotted path.
func metricName(names *probes.Names, m protocol.Measurement) string {
	r := strings.NewReplacer(".", "_", " ", "_", "/", "_", "+", "_", "#", "_")
	return r.Replace(names.Resolve(m.Device, m.Probe))
}
