package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

const natsCloseTimeout = 5 * time.Second

// natsConn is satisfied by *nats.Conn.
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Drain() error
}

// NATS publishes a Telemetry document per measurement on
// weather.<device hex>.<probe>.
type NATS struct {
	nc    natsConn
	names *probes.Names
	now   func() time.Time

	// closed fires once a drain has finished; nil skips the wait.
	closed <-chan struct{}
}

// DialNATS connects to url. Failing here is a setup error.
func DialNATS(url string, names *probes.Names, logger *slog.Logger) (*NATS, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(url,
		nats.Name("weatherduino-udplistener"),
		nats.Timeout(10*time.Second),
		nats.MaxReconnects(-1),
		nats.DrainTimeout(natsCloseTimeout),
		nats.ClosedHandler(func(_ *nats.Conn) { close(closed) }),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	s := NewNATS(nc, names)
	s.closed = closed
	return s, nil
}

func NewNATS(nc natsConn, names *probes.Names) *NATS {
	return &NATS{nc: nc, names: names, now: time.Now}
}

func (s *NATS) Name() string { return "nats" }

func (s *NATS) Subject(m protocol.Measurement) string {
	return fmt.Sprintf("weather.%s.%s", m.Device.Hex(), metricName(s.names, m))
}

func (s *NATS) Accept(_ context.Context, m protocol.Measurement) error {
	t, ok := NewTelemetry(m, s.names, s.now())
	if !ok {
		return nil
	}
	data, err := t.Marshal()
	if err != nil {
		return wrap(s.Name(), fmt.Errorf("marshal telemetry: %w", err))
	}
	return wrap(s.Name(), s.nc.Publish(s.Subject(m), data))
}

// Close flushes pending publishes to the server, then drains the connection
// and waits until it is closed.
func (s *NATS) Close() error {
	var flushErr error
	if err := s.nc.FlushTimeout(natsCloseTimeout); err != nil {
		flushErr = fmt.Errorf("nats flush: %w", err)
	}
	if err := s.nc.Drain(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("nats drain: %w", err))
	}
	if s.closed != nil {
		select {
		case <-s.closed:
		case <-time.After(2 * natsCloseTimeout):
			return errors.Join(flushErr, errors.New("nats drain did not finish"))
		}
	}
	return flushErr
}
