// Package metrics holds the listener's Prometheus collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

// Rejection reasons used as the "reason" label.
const (
	ReasonBadMagic  = "bad_magic"
	ReasonVersion   = "unsupported_version"
	ReasonTruncated = "truncated"
	ReasonFiltered  = "filtered_device"
	ReasonUnknown   = "unknown"
)

type Metrics struct {
	FramesReceived         prometheus.Counter
	FramesRejected         *prometheus.CounterVec
	MeasurementsDispatched *prometheus.CounterVec
	SinkErrors             *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weatherduino_frames_received_total",
			Help: "Datagrams received on the listen socket",
		}),
		FramesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherduino_frames_rejected_total",
			Help: "Datagrams dropped before dispatch, by reason",
		}, []string{"reason"}),
		MeasurementsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherduino_measurements_dispatched_total",
			Help: "Measurements accepted by a sink",
		}, []string{"sink"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherduino_sink_errors_total",
			Help: "Measurements a sink failed to accept",
		}, []string{"sink"}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesReceived, m.FramesRejected, m.MeasurementsDispatched, m.SinkErrors)
	}
	return m
}

// Reason maps a validation or decode error to a label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrBadMagic):
		return ReasonBadMagic
	case errors.Is(err, protocol.ErrUnsupportedVersion):
		return ReasonVersion
	case errors.Is(err, protocol.ErrTruncated):
		return ReasonTruncated
	case errors.Is(err, protocol.ErrFilteredDevice):
		return ReasonFiltered
	default:
		return ReasonUnknown
	}
}
