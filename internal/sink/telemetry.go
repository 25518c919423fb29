package sink

import (
	"encoding/json"
	"time"

	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

// Telemetry is the JSON document published to message brokers.
type Telemetry struct {
	Device      string    `json:"device"`
	Probe       string    `json:"probe"`
	Index       int       `json:"index"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
}

// NewTelemetry returns false when m has no valid field.
func NewTelemetry(m protocol.Measurement, names *probes.Names, ts time.Time) (Telemetry, bool) {
	if !m.AnyValid() {
		return Telemetry{}, false
	}
	t := Telemetry{
		Device:    m.Device.String(),
		Probe:     names.Resolve(m.Device, m.Probe),
		Index:     m.Probe,
		Timestamp: ts.UTC(),
	}
	if m.Temperature.Valid() {
		c := m.Temperature.Celsius()
		t.Temperature = &c
	}
	if m.HumidityValid() {
		h := float64(m.Humidity)
		t.Humidity = &h
	}
	return t, true
}

func (t Telemetry) Marshal() ([]byte, error) {
	return json.Marshal(t)
}
