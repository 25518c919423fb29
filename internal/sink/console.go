package sink

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

// Console prints readable lines for every valid field.
type Console struct {
	w     io.Writer
	names *probes.Names
}

func NewConsole(w io.Writer, names *probes.Names) *Console {
	return &Console{w: w, names: names}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Accept(_ context.Context, m protocol.Measurement) error {
	fields := readingText(m, ": ")
	if len(fields) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s probe %s:\n", m.Device, c.names.Resolve(m.Device, m.Probe))
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(c.w, b.String())
	return wrap(c.Name(), err)
}

func (c *Console) Close() error { return nil }
