package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

// Publisher is the part of an MQTT client the sink needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Disconnect()
}

// MQTT publishes a Telemetry document per measurement to
// <prefix>/<device hex>/<probe>.
type MQTT struct {
	pub    Publisher
	prefix string
	names  *probes.Names
	now    func() time.Time
}

func NewMQTT(pub Publisher, prefix string, names *probes.Names) *MQTT {
	if prefix == "" {
		prefix = "weather"
	}
	return &MQTT{pub: pub, prefix: prefix, names: names, now: time.Now}
}

func (s *MQTT) Name() string { return "mqtt" }

func (s *MQTT) Topic(m protocol.Measurement) string {
	return fmt.Sprintf("%s/%s/%s", s.prefix, m.Device.Hex(), metricName(s.names, m))
}

func (s *MQTT) Accept(_ context.Context, m protocol.Measurement) error {
	t, ok := NewTelemetry(m, s.names, s.now())
	if !ok {
		return nil
	}
	data, err := t.Marshal()
	if err != nil {
		return wrap(s.Name(), fmt.Errorf("marshal telemetry: %w", err))
	}
	return wrap(s.Name(), s.pub.Publish(s.Topic(m), data))
}

func (s *MQTT) Close() error {
	s.pub.Disconnect()
	return nil
}
