package sink

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	pickle "github.com/kisielk/og-rek"

	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

const carbonDialTimeout = 10 * time.Second

// Carbon forwards valid fields to a Graphite carbon pickle receiver. Each
// measurement becomes one message: a 4-byte big-endian length followed by a
// pickled list of (path, (timestamp, value)) tuples.
type Carbon struct {
	conn  net.Conn
	names *probes.Names
	now   func() time.Time
}

// DialCarbon connects to addr (host:port). Failing here is a setup error.
func DialCarbon(ctx context.Context, addr string, names *probes.Names) (*Carbon, error) {
	d := net.Dialer{Timeout: carbonDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("carbon dial %s: %w", addr, err)
	}
	return NewCarbon(conn, names), nil
}

func NewCarbon(conn net.Conn, names *probes.Names) *Carbon {
	return &Carbon{conn: conn, names: names, now: time.Now}
}

func (c *Carbon) Name() string { return "carbon" }

// MetricPath returns weather.<device hex>.<probe>.<field>.
func MetricPath(names *probes.Names, m protocol.Measurement, field string) string {
	return fmt.Sprintf("weather.%s.%s.%s", m.Device.Hex(), metricName(names, m), field)
}

func (c *Carbon) batch(m protocol.Measurement) []any {
	ts := c.now().Unix()
	var out []any
	if m.Temperature.Valid() {
		out = append(out, pickle.Tuple{MetricPath(c.names, m, "temp"), pickle.Tuple{ts, m.Temperature.Celsius()}})
	}
	if m.HumidityValid() {
		out = append(out, pickle.Tuple{MetricPath(c.names, m, "humidity"), pickle.Tuple{ts, float64(m.Humidity)}})
	}
	return out
}

func (c *Carbon) Accept(_ context.Context, m protocol.Measurement) error {
	metrics := c.batch(m)
	if len(metrics) == 0 {
		return nil
	}

	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	if err := pickle.NewEncoder(&buf).Encode(metrics); err != nil {
		return wrap(c.Name(), fmt.Errorf("pickle: %w", err))
	}
	msg := buf.Bytes()
	binary.BigEndian.PutUint32(msg[:4], uint32(len(msg)-4))

	if _, err := c.conn.Write(msg); err != nil {
		return wrap(c.Name(), err)
	}
	return nil
}

func (c *Carbon) Close() error {
	return c.conn.Close()
}
